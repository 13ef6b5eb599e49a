package scraper

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/types"
)

func TestParseMetric(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"":                0,
		"423":             423,
		"1,234":           1234,
		"1.2K":            1200,
		"5.7M":            5700000,
		"2b":              2000000000,
		"12.5k":           12500,
		"1,234 followers": 1234,
		"3.4M followers":  3400000,
		"12 books":        12,
		"no digits":       0,
		"  88 likes ":     88,
	}
	for in, want := range cases {
		if got := parseMetric(in); got != want {
			t.Fatalf("parseMetric(%q)=%d want %d", in, got, want)
		}
	}
}

func TestExtractHashtags(t *testing.T) {
	t.Parallel()
	got := extractHashtags("Sunset #travel #Kerala_diaries and #travel again #കേരളം")
	want := []string{"travel", "Kerala_diaries", "കേരളം"}
	if !slices.Equal(got, want) {
		t.Fatalf("hashtags=%v want %v", got, want)
	}
	if got := extractHashtags("no tags"); got != nil {
		t.Fatalf("hashtags=%v", got)
	}
}

func TestShortcode(t *testing.T) {
	t.Parallel()
	if got := shortcode("https://www.instagram.com/p/Cx1_aB-9/"); got != "Cx1_aB-9" {
		t.Fatalf("shortcode=%s", got)
	}
	if got := shortcode("https://www.instagram.com/reel/ZZ9/?igsh=1"); got != "ZZ9" {
		t.Fatalf("shortcode=%s", got)
	}
}

func TestBuildProfile(t *testing.T) {
	t.Parallel()

	raw := rawProfile{
		FullName:  " Alice ",
		Followers: "1,000",
		Following: "10",
		Posts:     "42",
		PostURLs:  []string{"https://www.instagram.com/p/A/", "https://www.instagram.com/p/B/"},
	}
	posts := []rawPost{
		{
			URL:       "https://www.instagram.com/p/A/",
			Caption:   "Morning run #fitness",
			Likes:     "90",
			Comments:  "10",
			Timestamp: "2026-01-05T08:30:00.000Z",
			Location:  "Kochi",
			Replies: []rawComment{
				{Text: "great", Author: "bob", Likes: "3"},
				{Text: "  "},
				{Text: "nice", Author: "carol"},
				{Text: "wow", Author: "dave"},
			},
		},
		{
			URL:       "https://www.instagram.com/p/B/",
			Caption:   "",
			Likes:     "40",
			Comments:  "",
			Timestamp: "garbage",
			Location:  "Kochi",
			Replies:   []rawComment{{Text: "first"}},
		},
	}
	scraped := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

	p := buildProfile("alice", raw, posts, 2, scraped)

	if p.FullName != "Alice" || p.Followers != 1000 || p.PostsCount != 42 || p.ScrapeDate != "2026-01-06" {
		t.Fatalf("profile=%+v", p)
	}
	if len(p.Posts) != 2 {
		t.Fatalf("len(posts)=%d", len(p.Posts))
	}

	a := p.Posts[0]
	if a.PostID != "A" || math.Abs(a.EngagementRate-10) > 1e-9 || a.PostedOn != "2026-01-05" {
		t.Fatalf("post A=%+v", a)
	}
	if len(a.CommentData) != 2 || a.CommentData[0].LikeCount != 3 || a.CommentData[1].Text != "nice" {
		t.Fatalf("comments=%+v", a.CommentData)
	}
	if !slices.Equal(a.Hashtags, []string{"fitness"}) {
		t.Fatalf("hashtags=%v", a.Hashtags)
	}

	b := p.Posts[1]
	// comment count falls back to the scraped replies
	if b.Comments != 1 || b.PostedOn != "" {
		t.Fatalf("post B=%+v", b)
	}
	if math.Abs(b.EngagementRate-4.1) > 1e-9 {
		t.Fatalf("post B rate=%v", b.EngagementRate)
	}

	if p.EngagementRate != 7.05 {
		t.Fatalf("profile rate=%v", p.EngagementRate)
	}
	if p.GeographicReach["Kochi"] != 2 {
		t.Fatalf("geo=%v", p.GeographicReach)
	}
}

func TestBuildProfileZeroFollowers(t *testing.T) {
	t.Parallel()
	p := buildProfile("ghost", rawProfile{}, []rawPost{{URL: "/p/X/", Likes: "5"}}, 0, time.Now())
	if p.Posts[0].EngagementRate != 0 || p.EngagementRate != 0 {
		t.Fatalf("rates=%v/%v", p.Posts[0].EngagementRate, p.EngagementRate)
	}
	if p.Posts[0].Location != nil || len(p.GeographicReach) != 0 {
		t.Fatalf("location=%v geo=%v", p.Posts[0].Location, p.GeographicReach)
	}

	empty := buildProfile("ghost", rawProfile{Followers: "10"}, nil, 0, time.Now())
	if empty.EngagementRate != 0 || len(empty.Posts) != 0 {
		t.Fatalf("empty=%+v", empty)
	}
}

type detectFunc func(ctx context.Context, text string) (types.Classification, error)

func (f detectFunc) DetectLanguage(ctx context.Context, text string) (types.Classification, error) {
	return f(ctx, text)
}

func TestDetectLanguages(t *testing.T) {
	t.Parallel()

	det := detectFunc(func(_ context.Context, text string) (types.Classification, error) {
		switch text {
		case "hello":
			return types.Classification{Label: "EN", Score: 0.9}, nil
		case "bad score":
			return types.Classification{Label: "en", Score: 3}, nil
		}
		return types.Classification{}, errors.New("boom")
	})
	s := New(config.Default().Scraping, nil, det, nil)

	posts := []types.PostRecord{
		{PostID: "1", Caption: "hello"},
		{PostID: "2", Caption: "  "},
		{PostID: "3", Caption: "other"},
		{PostID: "4", Caption: "bad score"},
	}
	s.detectLanguages(context.Background(), posts)

	if posts[0].DetectedLanguage != "en" || posts[0].LanguageConfidence != 0.9 {
		t.Fatalf("post 1=%+v", posts[0])
	}
	for _, p := range posts[1:] {
		if p.DetectedLanguage != types.UnknownLanguage || p.LanguageConfidence != 0 {
			t.Fatalf("post %s=%+v", p.PostID, p)
		}
	}
}

func TestSleepHonorsContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if err := sleep(context.Background(), 0); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestScrapeProfileRejectsEmptyUsername(t *testing.T) {
	t.Parallel()
	s := New(config.Default().Scraping, nil, nil, nil)
	if _, err := s.ScrapeProfile(context.Background(), " @ "); err == nil {
		t.Fatal("expected error")
	}
}
