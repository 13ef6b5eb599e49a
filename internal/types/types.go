package types

// Comment is a single comment scraped from a post
type Comment struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	LikeCount int    `json:"like_count"`
}

// PostRecord represents a scraped post. EngagementRate is a percentage.
type PostRecord struct {
	PostID             string    `json:"post_id"`
	PostURL            string    `json:"post_url,omitempty"`
	Caption            string    `json:"caption"`
	Hashtags           []string  `json:"hashtags,omitempty"`
	Likes              int       `json:"likes"`
	Comments           int       `json:"comments"`
	EngagementRate     float64   `json:"engagement_rate"`
	PostedOn           string    `json:"posted_on"`
	Location           *string   `json:"location,omitempty"`
	DetectedLanguage   string    `json:"detected_language,omitempty"`
	LanguageConfidence float64   `json:"language_confidence,omitempty"`
	CommentData        []Comment `json:"comment_data"`
}

// Language returns the detected language code, or UnknownLanguage when unset.
func (p PostRecord) Language() string {
	if p.DetectedLanguage == "" {
		return UnknownLanguage
	}
	return p.DetectedLanguage
}

// Demographics holds optional audience estimates. Nil means unknown.
type Demographics struct {
	EstimatedAge *float64 `json:"estimated_age"`
	Gender       *string  `json:"gender"`
	Location     *string  `json:"location"`
}

// ProfileRecord is the scraped raw data for one influencer.
// Persisted as <username>_profile.json and treated as read-only input afterwards.
type ProfileRecord struct {
	Username         string         `json:"username"`
	FullName         string         `json:"full_name,omitempty"`
	Biography        string         `json:"biography,omitempty"`
	Followers        int            `json:"followers"`
	Following        int            `json:"following"`
	PostsCount       int            `json:"posts_count"`
	IsBusiness       bool           `json:"is_business"`
	BusinessCategory string         `json:"business_category,omitempty"`
	ScrapeDate       string         `json:"scrape_date,omitempty"`
	EngagementRate   float64        `json:"engagement_rate"`
	Demographics     Demographics   `json:"demographics"`
	GeographicReach  map[string]int `json:"geographic_reach"`
	Posts            []PostRecord   `json:"posts"`
}

const (
	// UnknownLanguage is used for posts with no detected language
	UnknownLanguage = "unknown"

	// Uncategorized is the category assigned when classification is skipped or fails
	Uncategorized = "Uncategorized"

	// DateLayout is the ISO date format used for posted_on, scrape_date and analysis_date
	DateLayout = "2006-01-02"
)
