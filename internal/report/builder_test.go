package report

import (
	"strings"
	"testing"
	"time"

	"github.com/ibeckermayer/influencescope/internal/types"
)

var fixedNow = func() time.Time { return time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC) }

func sampleAnalysis() *types.AnalysisRecord {
	return &types.AnalysisRecord{
		Username:     "alice",
		AnalysisDate: "2026-02-03",
		BasicMetrics: types.BasicMetrics{Followers: 1234567, Following: 321, PostsCount: 1500, EngagementRate: 4.25},
		GeographicReach: map[string]int{
			"Kochi":  1,
			"Mumbai": 3,
		},
		ContentAnalysis: types.ContentAnalysis{
			Categories:       map[string]int{"Travel": 3, "Food": 1},
			Sentiment:        types.SentimentTally{Positive: 3, Negative: 1},
			CommentSentiment: types.SentimentTally{},
			Posts: []types.PostAnalysis{
				{PostID: "a", EngagementRate: 2, Likes: 10, Category: "Travel", Sentiment: "positive", PostedOn: "2026-01-01"},
				{PostID: "b", EngagementRate: 5, Likes: 2500, Category: "Food", Sentiment: "negative"},
				{PostID: "c", EngagementRate: 5, Likes: 30, Category: "Travel", Sentiment: "positive"},
				{PostID: "d", EngagementRate: 1, Likes: 40, Category: "Travel", Sentiment: "positive"},
			},
		},
		LanguageDistribution: map[string]float64{"en": 75, "ml": 25},
	}
}

func TestRenderSections(t *testing.T) {
	t.Parallel()
	b, err := New(3, WithClock(fixedNow))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	md := b.Render(sampleAnalysis())

	mustContainInOrder(t, md,
		"# Influencer Analysis Report: @alice",
		"- **Followers:** 1,234,567",
		"- **Posts Count:** 1,500",
		"- **Average Engagement Rate:** 4.25%",
		"- **Estimated Age:** N/A",
		"- **Gender:** N/A",
		"- **Travel:** 75.0%",
		"- **Food:** 25.0%",
		"#### Post Sentiment",
		"- **Positive:** 75.0%",
		"- **Neutral:** 0.0%",
		"- **Negative:** 25.0%",
		"- No comment sentiment data available",
		"- **en:** 75.0%",
		"- **ml:** 25.0%",
		"- **Mumbai:** 3 posts",
		"- **Kochi:** 1 post",
		"- **Average Engagement Rate:** 3.25%",
		"- **Highest Engagement Rate:** 5.00%",
		"- **Lowest Engagement Rate:** 1.00%",
		"#### Top Post #1",
		"- **Likes:** 2,500",
		"- **Posted On:** Unknown",
		"#### Top Post #2",
		"- **Likes:** 30",
		"#### Top Post #3",
		"- **Likes:** 10",
		"- **Posted On:** 2026-01-01",
		"Report generated on: 2026-02-03",
	)
	if strings.Contains(md, "Top Post #4") {
		t.Fatal("more than 3 top posts rendered")
	}
}

func TestTopPostsStable(t *testing.T) {
	t.Parallel()
	posts := []types.PostAnalysis{
		{PostID: "a", EngagementRate: 1},
		{PostID: "b", EngagementRate: 3},
		{PostID: "c", EngagementRate: 3},
		{PostID: "d", EngagementRate: 3},
	}
	got := TopPosts(posts, 3)
	if len(got) != 3 || got[0].PostID != "b" || got[1].PostID != "c" || got[2].PostID != "d" {
		t.Fatalf("top=%v", got)
	}
	if posts[0].PostID != "a" {
		t.Fatal("input reordered")
	}
	if got := TopPosts(posts[:2], 3); len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
}

func TestRenderEmptyAnalysis(t *testing.T) {
	t.Parallel()
	b, err := New(0, WithClock(fixedNow))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	md := b.Render(&types.AnalysisRecord{Username: "empty"})

	mustContainInOrder(t, md,
		"- **Followers:** 0",
		"- No category data available",
		"- No post sentiment data available",
		"- No comment sentiment data available",
		"- No language data available",
		"- No geographic data available",
		"- No engagement data available",
		"- No post data available",
	)
}

func TestRenderDemographics(t *testing.T) {
	t.Parallel()
	b, err := New(3, WithClock(fixedNow))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	age, gender := 27.0, "female"
	a := sampleAnalysis()
	a.Demographics = types.Demographics{EstimatedAge: &age, Gender: &gender}
	md := b.Render(a)
	if !strings.Contains(md, "- **Estimated Age:** 27\n") || !strings.Contains(md, "- **Gender:** female\n") {
		t.Fatalf("demographics missing:\n%s", md)
	}
}

func TestBuildHTML(t *testing.T) {
	t.Parallel()
	b, err := New(3, WithClock(fixedNow))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := sampleAnalysis()
	a.Username = "<script>"
	r, err := b.Build(a)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Subject != "Influencer report: @<script>, Feb 3" {
		t.Fatalf("subject=%q", r.Subject)
	}
	if strings.Contains(r.HTMLBody, "<script>") {
		t.Fatal("username not escaped in HTML")
	}
	if !strings.Contains(r.HTMLBody, "1,234,567") || !strings.Contains(r.Markdown, "Top Post #3") {
		t.Fatal("report bodies incomplete")
	}
}

func mustContainInOrder(t *testing.T, s string, parts ...string) {
	t.Helper()
	rest := s
	for _, p := range parts {
		i := strings.Index(rest, p)
		if i < 0 {
			t.Fatalf("missing (or out of order) %q in:\n%s", p, s)
		}
		rest = rest[i+len(p):]
	}
}
