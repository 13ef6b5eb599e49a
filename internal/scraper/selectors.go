package scraper

// Instagram DOM selectors
// These are isolated here because Instagram changes its DOM frequently
// Update these when scraping breaks

const (
	// Profile page selectors
	ProfileHeader = `header`
	ProfileStats  = `header ul li`
	ProfileName   = `header section span[dir="auto"]`
	PostLinks     = `a[href*="/p/"], a[href*="/reel/"]`

	// Post page selectors
	PostArticle   = `article`
	PostCaption   = `article h1`
	PostTimestamp = `article time[datetime]`
	PostLocation  = `article header a[href*="/explore/locations/"]`
	PostLikes     = `article section a[href$="/liked_by/"] span, article section span[class] > span`
	CommentItem   = `article ul ul[role="button"], article ul > div > li`

	// Login wall shown to anonymous sessions
	LoginWall = `input[name="username"]`
)

// Common wait conditions
const (
	WaitForProfile = ProfileHeader
	WaitForPost    = PostArticle
)

const instagramBaseURL = "https://www.instagram.com"
