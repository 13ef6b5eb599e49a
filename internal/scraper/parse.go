package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/influencescope/internal/types"
)

// rawProfile is the profile header data extracted from the DOM via JavaScript
type rawProfile struct {
	FullName         string   `json:"fullName"`
	Biography        string   `json:"biography"`
	Followers        string   `json:"followers"`
	Following        string   `json:"following"`
	Posts            string   `json:"posts"`
	IsBusiness       bool     `json:"isBusiness"`
	BusinessCategory string   `json:"businessCategory"`
	PostURLs         []string `json:"postUrls"`
}

// rawPost is one post page extracted from the DOM via JavaScript
type rawPost struct {
	URL       string       `json:"url"`
	Caption   string       `json:"caption"`
	Likes     string       `json:"likes"`
	Comments  string       `json:"comments"`
	Timestamp string       `json:"timestamp"`
	Location  string       `json:"location"`
	Replies   []rawComment `json:"replies"`
}

type rawComment struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Likes     string `json:"likes"`
}

var (
	hashtagRe   = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_]+)`)
	shortcodeRe = regexp.MustCompile(`/(?:p|reel)/([A-Za-z0-9_-]+)`)
	metricRe    = regexp.MustCompile(`(?i)\d[\d.,]*(?:\s?[kmb]\b)?`)
)

// parseMetric converts abbreviated metric strings like "1.2K", "5.7M", "1,234 followers" or "423" to integers
func parseMetric(s string) int {
	s = metricRe.FindString(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	s = strings.ReplaceAll(s, ",", "") // Remove commas (e.g., "1,234")
	s = strings.ReplaceAll(s, " ", "")

	// Handle abbreviated formats (K for thousands, M for millions, B for billions)
	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1e3
		s = s[:len(s)-1]
	case "M":
		multiplier = 1e6
		s = s[:len(s)-1]
	case "B":
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return int(math.Round(value * multiplier))
}

// extractHashtags returns the hashtags in caption without '#', in order, deduplicated
func extractHashtags(caption string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, m := range hashtagRe.FindAllStringSubmatch(caption, -1) {
		tag := m[1]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// shortcode returns the post ID embedded in a post URL, or the URL itself
func shortcode(postURL string) string {
	if m := shortcodeRe.FindStringSubmatch(postURL); len(m) > 1 {
		return m[1]
	}
	return postURL
}

// engagementRate is (likes+comments)/followers as a percentage, 0 without followers
func engagementRate(likes, comments, followers int) float64 {
	if followers <= 0 {
		return 0
	}
	return float64(likes+comments) / float64(followers) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// postedOn converts an RFC 3339 timestamp to the ISO date, or "" when unparseable
func postedOn(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format(types.DateLayout)
}

// buildPost converts a raw post into a PostRecord. Comments are capped at maxComments.
func buildPost(rp rawPost, followers, maxComments int) types.PostRecord {
	likes := parseMetric(rp.Likes)
	comments := parseMetric(rp.Comments)
	if comments == 0 {
		comments = len(rp.Replies)
	}

	post := types.PostRecord{
		PostID:         shortcode(rp.URL),
		PostURL:        rp.URL,
		Caption:        strings.TrimSpace(rp.Caption),
		Hashtags:       extractHashtags(rp.Caption),
		Likes:          likes,
		Comments:       comments,
		EngagementRate: engagementRate(likes, comments, followers),
		PostedOn:       postedOn(rp.Timestamp),
		CommentData:    []types.Comment{},
	}
	if loc := strings.TrimSpace(rp.Location); loc != "" {
		post.Location = &loc
	}

	for _, rc := range rp.Replies {
		if maxComments > 0 && len(post.CommentData) >= maxComments {
			break
		}
		text := strings.TrimSpace(rc.Text)
		if text == "" {
			continue
		}
		post.CommentData = append(post.CommentData, types.Comment{
			Text:      text,
			Author:    rc.Author,
			Timestamp: rc.Timestamp,
			LikeCount: parseMetric(rc.Likes),
		})
	}
	return post
}

// buildProfile assembles a ProfileRecord from the raw header and post pages.
// Profile engagement is the mean per-post rate rounded to 2 decimals, and every
// post location counts once toward geographic reach.
func buildProfile(username string, rp rawProfile, posts []rawPost, maxComments int, scraped time.Time) *types.ProfileRecord {
	followers := parseMetric(rp.Followers)
	profile := &types.ProfileRecord{
		Username:         username,
		FullName:         strings.TrimSpace(rp.FullName),
		Biography:        strings.TrimSpace(rp.Biography),
		Followers:        followers,
		Following:        parseMetric(rp.Following),
		PostsCount:       parseMetric(rp.Posts),
		IsBusiness:       rp.IsBusiness,
		BusinessCategory: strings.TrimSpace(rp.BusinessCategory),
		ScrapeDate:       scraped.Format(types.DateLayout),
		GeographicReach:  map[string]int{},
		Posts:            make([]types.PostRecord, 0, len(posts)),
	}

	var total float64
	for _, raw := range posts {
		post := buildPost(raw, followers, maxComments)
		total += post.EngagementRate
		if post.Location != nil {
			profile.GeographicReach[*post.Location]++
		}
		profile.Posts = append(profile.Posts, post)
	}
	if len(profile.Posts) > 0 {
		profile.EngagementRate = round2(total / float64(len(profile.Posts)))
	}
	return profile
}
