package types

// Polarity is the three-way sentiment bucket used in tallies
type Polarity string

const (
	Positive Polarity = "positive"
	Neutral  Polarity = "neutral"
	Negative Polarity = "negative"
)

// Polarities lists the buckets in display order
var Polarities = []Polarity{Positive, Neutral, Negative}

// SentimentTally counts scored texts per polarity
type SentimentTally struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Add increments the counter for p. Unknown polarities count as neutral.
func (t *SentimentTally) Add(p Polarity) {
	switch p {
	case Positive:
		t.Positive++
	case Negative:
		t.Negative++
	default:
		t.Neutral++
	}
}

// Count returns the counter for p
func (t SentimentTally) Count(p Polarity) int {
	switch p {
	case Positive:
		return t.Positive
	case Negative:
		return t.Negative
	default:
		return t.Neutral
	}
}

// Total returns the number of scored texts
func (t SentimentTally) Total() int {
	return t.Positive + t.Neutral + t.Negative
}

// BasicMetrics is a copy of the profile's scale metrics
type BasicMetrics struct {
	Followers      int     `json:"followers"`
	Following      int     `json:"following"`
	PostsCount     int     `json:"posts_count"`
	EngagementRate float64 `json:"engagement_rate"`
}

// PostAnalysis summarizes the classifier output for one captioned post
type PostAnalysis struct {
	PostID            string   `json:"post_id"`
	Likes             int      `json:"likes"`
	Comments          int      `json:"comments"`
	Sentiment         string   `json:"sentiment"`
	SentimentScore    float64  `json:"sentiment_score"`
	SentimentPolarity Polarity `json:"sentiment_polarity"`
	Category          string   `json:"category"`
	CategoryScore     float64  `json:"category_score"`
	EngagementRate    float64  `json:"engagement_rate"`
	PostedOn          string   `json:"posted_on"`
}

// ContentAnalysis holds the per-run content tallies
type ContentAnalysis struct {
	Categories       map[string]int `json:"categories"`
	Sentiment        SentimentTally `json:"sentiment"`
	CommentSentiment SentimentTally `json:"comment_sentiment"`
	Posts            []PostAnalysis `json:"posts"`
}

// EngagementStats are derived from the analyzed posts' engagement rates
type EngagementStats struct {
	Average float64
	Highest float64
	Lowest  float64
}

// EngagementStats returns the average, highest and lowest engagement rate of
// the analyzed posts. ok is false when there are none.
func (c ContentAnalysis) EngagementStats() (stats EngagementStats, ok bool) {
	if len(c.Posts) == 0 {
		return stats, false
	}
	stats.Highest = c.Posts[0].EngagementRate
	stats.Lowest = c.Posts[0].EngagementRate
	var sum float64
	for _, p := range c.Posts {
		sum += p.EngagementRate
		stats.Highest = max(stats.Highest, p.EngagementRate)
		stats.Lowest = min(stats.Lowest, p.EngagementRate)
	}
	stats.Average = sum / float64(len(c.Posts))
	return stats, true
}

// CategoryTotal returns the number of categorized posts
func (c ContentAnalysis) CategoryTotal() int {
	total := 0
	for _, n := range c.Categories {
		total += n
	}
	return total
}

// AnalysisRecord is derived from one ProfileRecord plus classifier outputs.
// Persisted as <username>_analysis.json and overwritten on every run.
type AnalysisRecord struct {
	Username             string             `json:"username"`
	AnalysisDate         string             `json:"analysis_date"`
	BasicMetrics         BasicMetrics       `json:"basic_metrics"`
	Demographics         Demographics       `json:"demographics"`
	GeographicReach      map[string]int     `json:"geographic_reach"`
	ContentAnalysis      ContentAnalysis    `json:"content_analysis"`
	LanguageDistribution map[string]float64 `json:"language_distribution"`
}
