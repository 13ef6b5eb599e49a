package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/scraper"
	"github.com/ibeckermayer/influencescope/internal/store"
	"github.com/ibeckermayer/influencescope/internal/types"
)

type fixtureScraper map[string]*types.ProfileRecord

func (f fixtureScraper) ScrapeProfile(_ context.Context, username string) (*types.ProfileRecord, error) {
	p, ok := f[username]
	if !ok {
		return nil, scraper.ErrProfileNotFound
	}
	return p, nil
}

func aliceProfile() *types.ProfileRecord {
	goa := "Goa"
	return &types.ProfileRecord{
		Username:        "alice",
		Followers:       1000,
		Following:       100,
		PostsCount:      42,
		EngagementRate:  5,
		GeographicReach: map[string]int{"Goa": 1},
		Posts: []types.PostRecord{
			{
				PostID:           "p1",
				Caption:          "Amazing beach trip with the best views",
				Likes:            100,
				Comments:         10,
				EngagementRate:   11,
				PostedOn:         "2026-01-01",
				Location:         &goa,
				DetectedLanguage: "en",
				CommentData: []types.Comment{
					{Text: "love it"},
					{Text: "worst angle"},
					{Text: ""},
				},
			},
			{PostID: "p2", Likes: 5, EngagementRate: 0.5, PostedOn: "2026-01-02"},
			{
				PostID:           "p3",
				Caption:          "Terrible dinner, awful food",
				Likes:            20,
				Comments:         2,
				EngagementRate:   2.2,
				PostedOn:         "2026-01-03",
				DetectedLanguage: "en",
			},
		},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	a, err := New(cfg, nil, nil, WithScraper(fixtureScraper{"alice": aliceProfile()}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestBatchContinuesPastFailures(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	ctx := context.Background()

	results := a.Batch(ctx, []string{"ghost", "alice"}, true)
	if len(results) != 2 {
		t.Fatalf("len(results)=%d", len(results))
	}
	if !errors.Is(results[0].Err, scraper.ErrProfileNotFound) {
		t.Fatalf("ghost err=%v", results[0].Err)
	}
	if results[1].Err != nil {
		t.Fatalf("alice err=%v", results[1].Err)
	}

	err := BatchError(results)
	if err == nil || !strings.Contains(err.Error(), "ghost") || strings.Contains(err.Error(), "alice") {
		t.Fatalf("BatchError=%v", err)
	}

	res := results[1]
	content := res.Analysis.ContentAnalysis
	if content.Sentiment != (types.SentimentTally{Positive: 1, Negative: 1}) {
		t.Fatalf("sentiment=%+v", content.Sentiment)
	}
	if content.CommentSentiment != (types.SentimentTally{Positive: 1, Negative: 1}) {
		t.Fatalf("comment sentiment=%+v", content.CommentSentiment)
	}
	if content.Categories["Travel"] != 1 || content.Categories["Food"] != 1 || len(content.Categories) != 2 {
		t.Fatalf("categories=%v", content.Categories)
	}
	if got := res.Analysis.LanguageDistribution["unknown"]; math.Abs(got-100.0/3) > 1e-9 {
		t.Fatalf("unknown=%v", got)
	}

	for _, path := range []string{
		a.Files().ProfilePath("alice"),
		a.Files().AnalysisPath("alice"),
		res.Report,
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing %s: %v", path, err)
		}
	}
	if len(res.Charts) != 7 {
		t.Fatalf("charts=%v", res.Charts)
	}

	md, err := os.ReadFile(res.Report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "# Influencer Analysis Report: @alice") {
		t.Fatalf("report=%s", md)
	}

	runs, err := a.RecentRuns(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].PostsScored != 2 {
		t.Fatalf("runs=%+v", runs)
	}

	progress := a.Progress()
	if progress[store.StepDataCollection] != store.StatusCompleted ||
		progress[store.StepDataAnalysis] != store.StatusCompleted ||
		progress[store.StepBrandMatching] != store.StatusPending {
		t.Fatalf("progress=%v", progress)
	}
}

func TestProcessAcceptsAtPrefixedUsername(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	res := a.Process(context.Background(), " @alice", true)
	if res.Err != nil {
		t.Fatalf("err=%v", res.Err)
	}
	if res.Username != "alice" || res.Analysis == nil || res.Analysis.Username != "alice" {
		t.Fatalf("res=%+v", res)
	}
	if filepath.Base(res.Report) != "alice_report.md" {
		t.Fatalf("report=%s", res.Report)
	}
	if _, _, err := a.Report("@alice"); err != nil {
		t.Fatalf("Report(@alice): %v", err)
	}
	if paths, err := a.Charts("@alice"); err != nil || len(paths) != 7 {
		t.Fatalf("Charts(@alice)=%v, %v", paths, err)
	}
}

func TestProcessRejectsPathUsernames(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	for _, u := range []string{"../alice", "a/b", "@", ""} {
		res := a.Process(context.Background(), u, false)
		if !errors.Is(res.Err, store.ErrInvalidUsername) {
			t.Fatalf("Process(%q) err=%v", u, res.Err)
		}
	}
}

func TestAnalyzeFailureRestoresProgress(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	ctx := context.Background()

	if _, err := a.Scrape(ctx, "alice"); err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := a.Analyze(cancelled, "alice"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if got := a.Progress()[store.StepDataAnalysis]; got != store.StatusPending {
		t.Fatalf("after cancelled first run: %s", got)
	}

	if _, err := a.Analyze(ctx, "alice"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := a.Analyze(cancelled, "alice"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if got := a.Progress()[store.StepDataAnalysis]; got != store.StatusCompleted {
		t.Fatalf("after cancelled rerun: %s", got)
	}
}

func TestAnalyzeWithoutProfile(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	if _, err := a.Analyze(context.Background(), "nobody"); !errors.Is(err, store.ErrNoData) {
		t.Fatalf("err=%v", err)
	}
	if _, _, err := a.Report("nobody"); !errors.Is(err, store.ErrNoData) {
		t.Fatalf("err=%v", err)
	}
}

func TestMatchUsesPersistedAnalyses(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	ctx := context.Background()

	if res := a.Process(ctx, "alice", true); res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}

	brands := filepath.Join(t.TempDir(), "brands.toml")
	err := os.WriteFile(brands, []byte(`
[[brand]]
name = "SunTan"
industry = "Travel"
product_cost = 100
roi_expectation = 20
[brand.target_audience]
location = "Goa"

[[brand]]
name = "Snowboards"
product_cost = 300
[brand.target_audience]
location = "Oslo"
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	offers, err := a.Match(brands)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(offers) != 2 || len(offers[0].Offers) != 1 || len(offers[1].Offers) != 0 {
		t.Fatalf("offers=%+v", offers)
	}
	o := offers[0].Offers[0]
	if o.Influencer.Name != "alice" || o.Influencer.AverageReach != 50 {
		t.Fatalf("influencer=%+v", o.Influencer)
	}
	if o.Pricing.MinPrice != 3 || o.Pricing.MaxPrice != 27 || o.Pricing.RecommendedPrice != 15 {
		t.Fatalf("pricing=%+v", o.Pricing)
	}
	if a.Progress()[store.StepBrandMatching] != store.StatusCompleted {
		t.Fatalf("progress=%v", a.Progress())
	}

	if _, err := a.Match(""); err == nil {
		t.Fatal("expected error without brands file")
	}
}

func TestScheduleRequiresWatchlist(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	if err := a.Schedule(context.Background(), false); err == nil {
		t.Fatal("expected error for empty watchlist")
	}
}
