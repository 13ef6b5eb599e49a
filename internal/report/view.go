package report

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ibeckermayer/influencescope/internal/types"
)

const notAvailable = "N/A"
const unknown = "Unknown"

// view is the display-ready form of an AnalysisRecord shared by the markdown and HTML outputs
type view struct {
	Username string
	Date     string

	Followers      string
	Following      string
	PostsCount     string
	EngagementRate string

	EstimatedAge string
	Gender       string
	Location     string

	Categories       []entry
	PostSentiment    []entry
	CommentSentiment []entry
	Languages        []entry
	Geography        []entry

	HasEngagement     bool
	AverageEngagement string
	HighestEngagement string
	LowestEngagement  string

	TopPosts []topPost
}

// entry is one labelled row of a breakdown
type entry struct {
	Label string
	Value string
}

type topPost struct {
	Rank           int
	PostID         string
	EngagementRate string
	Likes          string
	Comments       string
	Category       string
	Sentiment      string
	PostedOn       string
}

func newView(a *types.AnalysisRecord, topN int, now time.Time) view {
	content := a.ContentAnalysis
	v := view{
		Username:       a.Username,
		Date:           now.Format(types.DateLayout),
		Followers:      humanize.Comma(int64(a.BasicMetrics.Followers)),
		Following:      humanize.Comma(int64(a.BasicMetrics.Following)),
		PostsCount:     humanize.Comma(int64(a.BasicMetrics.PostsCount)),
		EngagementRate: strconv.FormatFloat(a.BasicMetrics.EngagementRate, 'f', -1, 64),
		EstimatedAge:   notAvailable,
		Gender:         notAvailable,
		Location:       notAvailable,
	}

	d := a.Demographics
	if d.EstimatedAge != nil {
		v.EstimatedAge = strconv.FormatFloat(*d.EstimatedAge, 'f', -1, 64)
	}
	if d.Gender != nil && *d.Gender != "" {
		v.Gender = *d.Gender
	}
	if d.Location != nil && *d.Location != "" {
		v.Location = *d.Location
	}

	if total := content.CategoryTotal(); total > 0 {
		for _, kv := range sortedDesc(content.Categories) {
			v.Categories = append(v.Categories, entry{kv.key, pct(float64(kv.val) / float64(total) * 100)})
		}
	}
	v.PostSentiment = sentimentEntries(content.Sentiment)
	v.CommentSentiment = sentimentEntries(content.CommentSentiment)

	for _, kv := range sortedDesc(a.LanguageDistribution) {
		v.Languages = append(v.Languages, entry{kv.key, pct(kv.val)})
	}
	for _, kv := range sortedDesc(a.GeographicReach) {
		label := "posts"
		if kv.val == 1 {
			label = "post"
		}
		v.Geography = append(v.Geography, entry{kv.key, strconv.Itoa(kv.val) + " " + label})
	}

	if stats, ok := content.EngagementStats(); ok {
		v.HasEngagement = true
		v.AverageEngagement = rate(stats.Average)
		v.HighestEngagement = rate(stats.Highest)
		v.LowestEngagement = rate(stats.Lowest)
	}

	for i, p := range TopPosts(content.Posts, topN) {
		v.TopPosts = append(v.TopPosts, topPost{
			Rank:           i + 1,
			PostID:         p.PostID,
			EngagementRate: rate(p.EngagementRate),
			Likes:          humanize.Comma(int64(p.Likes)),
			Comments:       humanize.Comma(int64(p.Comments)),
			Category:       orUnknown(p.Category),
			Sentiment:      orUnknown(p.Sentiment),
			PostedOn:       orUnknown(p.PostedOn),
		})
	}
	return v
}

// TopPosts returns the n posts with the highest engagement rate. Equal rates keep
// their input order.
func TopPosts(posts []types.PostAnalysis, n int) []types.PostAnalysis {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b types.PostAnalysis) int {
		return cmp.Compare(b.EngagementRate, a.EngagementRate)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func sentimentEntries(t types.SentimentTally) []entry {
	total := t.Total()
	if total == 0 {
		return nil
	}
	out := make([]entry, 0, len(types.Polarities))
	for _, p := range types.Polarities {
		out = append(out, entry{capitalize(string(p)), pct(float64(t.Count(p)) / float64(total) * 100)})
	}
	return out
}

type pair[V int | float64] struct {
	key string
	val V
}

// sortedDesc orders map entries by value descending, then key ascending
func sortedDesc[V int | float64](m map[string]V) []pair[V] {
	out := make([]pair[V], 0, len(m))
	for k, v := range m {
		out = append(out, pair[V]{k, v})
	}
	slices.SortFunc(out, func(a, b pair[V]) int {
		if c := cmp.Compare(b.val, a.val); c != 0 {
			return c
		}
		return strings.Compare(a.key, b.key)
	})
	return out
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func rate(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
