package analyzer

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ibeckermayer/influencescope/internal/types"
)

var testLabels = []string{"Fashion", "Food", "Tech"}

func fixedClock() time.Time {
	return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
}

// keywordSentiment labels text by keyword so outputs are fixed per input
func keywordSentiment(ctx context.Context, text string) (types.Classification, error) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "great"), strings.Contains(t, "love"):
		return types.Classification{Label: "5 stars", Score: 0.9}, nil
	case strings.Contains(t, "terrible"), strings.Contains(t, "hate"):
		return types.Classification{Label: "1 star", Score: 0.8}, nil
	default:
		return types.Classification{Label: "3 stars", Score: 0.6}, nil
	}
}

func keywordCategory(ctx context.Context, text string, labels []string) (types.Classification, error) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "product"), strings.Contains(t, "service"):
		return types.Classification{Label: "Tech", Score: 0.7}, nil
	case strings.Contains(t, "pizza"):
		return types.Classification{Label: "Food", Score: 0.95}, nil
	default:
		return types.Classification{Label: "Fashion", Score: 0.4}, nil
	}
}

func newTestAnalyzer(opts ...Option) *Analyzer {
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return New(SentimentFunc(keywordSentiment), CategoryFunc(keywordCategory), testLabels, opts...)
}

func threePostProfile() *types.ProfileRecord {
	return &types.ProfileRecord{
		Username:        "alice",
		Followers:       1000,
		Following:       10,
		PostsCount:      3,
		EngagementRate:  4.5,
		GeographicReach: map[string]int{"Kochi": 2},
		Posts: []types.PostRecord{
			{PostID: "p1", Caption: "Great product!", Likes: 40, Comments: 2, EngagementRate: 4.2, PostedOn: "2024-01-03", DetectedLanguage: "en"},
			{PostID: "p2", Caption: "", Likes: 10, Comments: 0, EngagementRate: 1.0, PostedOn: "2024-01-02", DetectedLanguage: ""},
			{PostID: "p3", Caption: "Terrible service", Likes: 80, Comments: 5, EngagementRate: 8.5, PostedOn: "2024-01-01", DetectedLanguage: "en"},
		},
	}
}

func TestAnalyze_ThreePostScenario(t *testing.T) {
	t.Parallel()

	rec, err := newTestAnalyzer().Analyze(context.Background(), threePostProfile())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := types.SentimentTally{Positive: 1, Neutral: 0, Negative: 1}
	if rec.ContentAnalysis.Sentiment != want {
		t.Fatalf("Sentiment=%+v want %+v", rec.ContentAnalysis.Sentiment, want)
	}
	if got := rec.ContentAnalysis.Categories["Tech"]; got != 2 || len(rec.ContentAnalysis.Categories) != 1 {
		t.Fatalf("Categories=%v", rec.ContentAnalysis.Categories)
	}
	if len(rec.ContentAnalysis.Posts) != 2 {
		t.Fatalf("Posts=%v", rec.ContentAnalysis.Posts)
	}
	if rec.ContentAnalysis.Posts[0].PostID != "p1" || rec.ContentAnalysis.Posts[1].PostID != "p3" {
		t.Fatalf("post order=%v", rec.ContentAnalysis.Posts)
	}

	// Language distribution covers all three posts, captionless included.
	en, unknown := rec.LanguageDistribution["en"], rec.LanguageDistribution[types.UnknownLanguage]
	if math.Abs(en-200.0/3) > 1e-9 || math.Abs(unknown-100.0/3) > 1e-9 {
		t.Fatalf("LanguageDistribution=%v", rec.LanguageDistribution)
	}

	if rec.AnalysisDate != "2026-10-19" {
		t.Fatalf("AnalysisDate=%q", rec.AnalysisDate)
	}
	if rec.BasicMetrics.Followers != 1000 || rec.BasicMetrics.EngagementRate != 4.5 {
		t.Fatalf("BasicMetrics=%+v", rec.BasicMetrics)
	}
	if rec.GeographicReach["Kochi"] != 2 {
		t.Fatalf("GeographicReach=%v", rec.GeographicReach)
	}
}

func TestAnalyze_ZeroPosts(t *testing.T) {
	t.Parallel()

	rec, err := newTestAnalyzer().Analyze(context.Background(), &types.ProfileRecord{Username: "empty"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.ContentAnalysis.Sentiment.Total() != 0 || rec.ContentAnalysis.CommentSentiment.Total() != 0 {
		t.Fatalf("tallies not zero: %+v", rec.ContentAnalysis)
	}
	if len(rec.ContentAnalysis.Categories) != 0 || len(rec.ContentAnalysis.Posts) != 0 {
		t.Fatalf("content not empty: %+v", rec.ContentAnalysis)
	}
	if rec.LanguageDistribution == nil || len(rec.LanguageDistribution) != 0 {
		t.Fatalf("LanguageDistribution=%v", rec.LanguageDistribution)
	}
}

func TestAnalyze_ClassifierErrorDefaultsAndContinues(t *testing.T) {
	t.Parallel()

	boom := errors.New("model unavailable")
	sentiment := SentimentFunc(func(ctx context.Context, text string) (types.Classification, error) {
		if text == "first" {
			return types.Classification{}, &types.ClassifierError{Provider: "fake", Op: "sentiment", Err: boom}
		}
		return keywordSentiment(ctx, text)
	})
	category := CategoryFunc(func(ctx context.Context, text string, labels []string) (types.Classification, error) {
		if text == "first" {
			return types.Classification{}, boom
		}
		return keywordCategory(ctx, text, labels)
	})

	profile := &types.ProfileRecord{
		Username: "bob",
		Posts: []types.PostRecord{
			{PostID: "a", Caption: "first"},
			{PostID: "b", Caption: "I love pizza"},
		},
	}
	rec, err := New(sentiment, category, testLabels).Analyze(context.Background(), profile)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	first := rec.ContentAnalysis.Posts[0]
	if first.Sentiment != "neutral" || first.SentimentScore != 1.0 || first.SentimentPolarity != types.Neutral {
		t.Fatalf("first sentiment=%+v", first)
	}
	if first.Category != types.Uncategorized || first.CategoryScore != 1.0 {
		t.Fatalf("first category=%+v", first)
	}
	second := rec.ContentAnalysis.Posts[1]
	if second.Category != "Food" || second.SentimentPolarity != types.Positive {
		t.Fatalf("second=%+v", second)
	}
	if rec.ContentAnalysis.Sentiment != (types.SentimentTally{Positive: 1, Neutral: 1}) {
		t.Fatalf("Sentiment=%+v", rec.ContentAnalysis.Sentiment)
	}
}

func TestAnalyze_InvalidResultsAreDefaulted(t *testing.T) {
	t.Parallel()

	sentiment := SentimentFunc(func(ctx context.Context, text string) (types.Classification, error) {
		return types.Classification{Label: "positive", Score: 7}, nil
	})
	category := CategoryFunc(func(ctx context.Context, text string, labels []string) (types.Classification, error) {
		return types.Classification{Label: "Astrology", Score: 0.9}, nil
	})

	profile := &types.ProfileRecord{Posts: []types.PostRecord{{PostID: "x", Caption: "hello"}}}
	rec, err := New(sentiment, category, testLabels).Analyze(context.Background(), profile)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.ContentAnalysis.Sentiment.Neutral != 1 {
		t.Fatalf("Sentiment=%+v", rec.ContentAnalysis.Sentiment)
	}
	if rec.ContentAnalysis.Categories[types.Uncategorized] != 1 {
		t.Fatalf("Categories=%v", rec.ContentAnalysis.Categories)
	}
}

func TestAnalyze_CommentSentimentOnlyForNonEmptyComments(t *testing.T) {
	t.Parallel()

	profile := &types.ProfileRecord{
		Posts: []types.PostRecord{
			{
				PostID:  "c1",
				Caption: "new look",
				CommentData: []types.Comment{
					{Text: "love it"},
					{Text: ""},
					{Text: "hate this"},
					{Text: "ok"},
				},
			},
			{
				// Comments on a captionless post are not scored.
				PostID:      "c2",
				Caption:     "   ",
				CommentData: []types.Comment{{Text: "great"}},
			},
		},
	}
	rec, err := newTestAnalyzer().Analyze(context.Background(), profile)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := types.SentimentTally{Positive: 1, Neutral: 1, Negative: 1}
	if rec.ContentAnalysis.CommentSentiment != want {
		t.Fatalf("CommentSentiment=%+v", rec.ContentAnalysis.CommentSentiment)
	}
	if rec.ContentAnalysis.Sentiment.Total() != 1 {
		t.Fatalf("Sentiment=%+v", rec.ContentAnalysis.Sentiment)
	}
}

func TestAnalyze_CategoryKeysSubsetOfLabels(t *testing.T) {
	t.Parallel()

	rec, err := newTestAnalyzer().Analyze(context.Background(), threePostProfile())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	allowed := append(slices.Clone(testLabels), types.Uncategorized)
	for k := range rec.ContentAnalysis.Categories {
		if !slices.Contains(allowed, k) {
			t.Fatalf("unexpected category key %q", k)
		}
	}
}

func TestAnalyze_ConcurrentMatchesSequential(t *testing.T) {
	t.Parallel()

	profile := &types.ProfileRecord{Username: "busy"}
	captions := []string{"Great product", "pizza night", "", "terrible service", "plain", "love pizza", "hate it", "ok"}
	langs := []string{"en", "hi", "", "ml", "en", "en", "hi", "en"}
	for i, c := range captions {
		profile.Posts = append(profile.Posts, types.PostRecord{
			PostID:           string(rune('a' + i)),
			Caption:          c,
			DetectedLanguage: langs[i],
			CommentData:      []types.Comment{{Text: "love"}, {Text: "hate"}},
		})
	}

	var calls atomic.Int64
	slow := SentimentFunc(func(ctx context.Context, text string) (types.Classification, error) {
		calls.Add(1)
		time.Sleep(time.Millisecond)
		return keywordSentiment(ctx, text)
	})

	seq, err := New(slow, CategoryFunc(keywordCategory), testLabels, WithClock(fixedClock)).Analyze(context.Background(), profile)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := New(slow, CategoryFunc(keywordCategory), testLabels, WithClock(fixedClock), WithConcurrency(4)).Analyze(context.Background(), profile)
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}

	if seq.ContentAnalysis.Sentiment != par.ContentAnalysis.Sentiment ||
		seq.ContentAnalysis.CommentSentiment != par.ContentAnalysis.CommentSentiment {
		t.Fatalf("tallies differ: seq=%+v par=%+v", seq.ContentAnalysis, par.ContentAnalysis)
	}
	if len(seq.ContentAnalysis.Posts) != len(par.ContentAnalysis.Posts) {
		t.Fatalf("posts len differ")
	}
	for i := range seq.ContentAnalysis.Posts {
		if seq.ContentAnalysis.Posts[i] != par.ContentAnalysis.Posts[i] {
			t.Fatalf("post %d differs: %+v vs %+v", i, seq.ContentAnalysis.Posts[i], par.ContentAnalysis.Posts[i])
		}
	}
	// 7 captioned posts plus 2 comments each, for two runs.
	if got := calls.Load(); got != 2*(7+7*2) {
		t.Fatalf("calls=%d", got)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer()
	first, err := a.Analyze(context.Background(), threePostProfile())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := a.Analyze(context.Background(), threePostProfile())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ContentAnalysis.Sentiment != second.ContentAnalysis.Sentiment {
		t.Fatalf("sentiment differs")
	}
	for k, v := range first.ContentAnalysis.Categories {
		if second.ContentAnalysis.Categories[k] != v {
			t.Fatalf("category %s differs", k)
		}
	}
}

func TestAnalyze_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestAnalyzer().Analyze(ctx, threePostProfile()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestLanguageDistribution_SumsTo100(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 13; n++ {
		posts := make([]types.PostRecord, n)
		codes := []string{"en", "hi", "ml", ""}
		for i := range posts {
			posts[i].DetectedLanguage = codes[i%len(codes)]
		}
		var sum float64
		for _, v := range LanguageDistribution(posts) {
			sum += v
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Fatalf("n=%d sum=%v", n, sum)
		}
	}
	if got := LanguageDistribution(nil); len(got) != 0 {
		t.Fatalf("empty=%v", got)
	}
}
