package store

import "time"

// ProfileRow is the latest scrape snapshot of an influencer in the history db
type ProfileRow struct {
	Username       string
	FullName       string
	Followers      int
	Following      int
	PostsCount     int
	EngagementRate float64
	ScrapedPosts   int
	ScrapedAt      time.Time
}

// AnalysisRun is one row of analysis history
type AnalysisRun struct {
	ID             int64
	RunID          string
	Username       string
	AnalysisDate   string
	EngagementRate float64
	PostsScored    int
	PositivePosts  int
	NeutralPosts   int
	NegativePosts  int
	CommentsScored int
	TopCategory    string
	TopLanguage    string
	CreatedAt      time.Time
}
