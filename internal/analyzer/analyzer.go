package analyzer

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/influencescope/internal/logger"
	"github.com/ibeckermayer/influencescope/internal/types"
)

// SentimentClassifier scores the polarity of a piece of text
type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, text string) (types.Classification, error)
}

// CategoryClassifier picks the best label for text out of a closed candidate set
type CategoryClassifier interface {
	ClassifyCategory(ctx context.Context, text string, labels []string) (types.Classification, error)
}

// SentimentFunc adapts a plain function to SentimentClassifier
type SentimentFunc func(ctx context.Context, text string) (types.Classification, error)

func (f SentimentFunc) ClassifySentiment(ctx context.Context, text string) (types.Classification, error) {
	return f(ctx, text)
}

// CategoryFunc adapts a plain function to CategoryClassifier
type CategoryFunc func(ctx context.Context, text string, labels []string) (types.Classification, error)

func (f CategoryFunc) ClassifyCategory(ctx context.Context, text string, labels []string) (types.Classification, error) {
	return f(ctx, text, labels)
}

// Analyzer aggregates classifier output over a profile's posts
type Analyzer struct {
	sentiment   SentimentClassifier
	category    CategoryClassifier
	labels      []string
	concurrency int
	log         *logger.Logger
	now         func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithConcurrency bounds how many posts are classified at once. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) { a.concurrency = max(n, 1) }
}

// WithLogger sets the logger used for per-item classifier failures
func WithLogger(log *logger.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// WithClock overrides the clock used for analysis_date
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an analyzer over the given classifiers and candidate category labels
func New(sentiment SentimentClassifier, category CategoryClassifier, labels []string, opts ...Option) *Analyzer {
	a := &Analyzer{
		sentiment:   sentiment,
		category:    category,
		labels:      append([]string(nil), labels...),
		concurrency: 1,
		log:         logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs a one-off sequential analysis with the default options
func Analyze(ctx context.Context, profile *types.ProfileRecord, sentiment SentimentClassifier, category CategoryClassifier, labels []string) (*types.AnalysisRecord, error) {
	return New(sentiment, category, labels).Analyze(ctx, profile)
}

// postResult is the outcome of classifying one post and its comments
type postResult struct {
	scored    bool
	sentiment types.Classification
	polarity  types.Polarity
	category  types.Classification
	comments  []types.Polarity
}

// Analyze builds an AnalysisRecord for profile. Classifier failures never abort the
// run; they are replaced with neutral/Uncategorized defaults per item. The only
// error returned is the context's, when it is cancelled mid-run.
func (a *Analyzer) Analyze(ctx context.Context, profile *types.ProfileRecord) (*types.AnalysisRecord, error) {
	record := newRecord(profile, a.now())
	if len(profile.Posts) == 0 {
		a.log.Info("no posts to analyze", "username", profile.Username)
		return record, nil
	}

	results := make([]postResult, len(profile.Posts))

	// Each goroutine owns one slot; tallies are folded below in post order so the
	// output does not depend on scheduling.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range profile.Posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.scorePost(gctx, &profile.Posts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := &record.ContentAnalysis
	for i, res := range results {
		if !res.scored {
			continue
		}
		post := profile.Posts[i]

		content.Sentiment.Add(res.polarity)
		for _, p := range res.comments {
			content.CommentSentiment.Add(p)
		}
		content.Categories[res.category.Label]++

		content.Posts = append(content.Posts, types.PostAnalysis{
			PostID:            post.PostID,
			Likes:             post.Likes,
			Comments:          post.Comments,
			Sentiment:         res.sentiment.Label,
			SentimentScore:    res.sentiment.Score,
			SentimentPolarity: res.polarity,
			Category:          res.category.Label,
			CategoryScore:     res.category.Score,
			EngagementRate:    post.EngagementRate,
			PostedOn:          post.PostedOn,
		})
	}

	record.LanguageDistribution = LanguageDistribution(profile.Posts)

	a.log.Info("analysis complete",
		"username", profile.Username,
		"posts", len(profile.Posts),
		"scored", len(content.Posts),
		"comments_scored", content.CommentSentiment.Total(),
	)
	return record, nil
}

func (a *Analyzer) scorePost(ctx context.Context, post *types.PostRecord) postResult {
	caption := post.Caption
	if strings.TrimSpace(caption) == "" {
		return postResult{}
	}

	res := postResult{scored: true}
	res.sentiment = a.classifySentiment(ctx, caption, post.PostID)
	res.polarity = MapPolarity(res.sentiment.Label)

	for _, c := range post.CommentData {
		if c.Text == "" {
			continue
		}
		cs := a.classifySentiment(ctx, c.Text, post.PostID)
		res.comments = append(res.comments, MapPolarity(cs.Label))
	}

	res.category = a.classifyCategory(ctx, caption, post.PostID)
	return res
}

func (a *Analyzer) classifySentiment(ctx context.Context, text, postID string) types.Classification {
	if a.sentiment == nil {
		return types.NeutralSentiment
	}
	c, err := a.sentiment.ClassifySentiment(ctx, text)
	if err == nil {
		err = c.Validate(nil)
	}
	if err != nil {
		a.log.Warn("sentiment classification failed, defaulting to neutral", "post_id", postID, "error", err)
		return types.NeutralSentiment
	}
	return c
}

func (a *Analyzer) classifyCategory(ctx context.Context, text, postID string) types.Classification {
	if a.category == nil {
		return types.UncategorizedPost
	}
	c, err := a.category.ClassifyCategory(ctx, text, a.labels)
	if err == nil {
		err = c.Validate(a.labels)
	}
	if err != nil {
		a.log.Warn("category classification failed, defaulting to Uncategorized", "post_id", postID, "error", err)
		return types.UncategorizedPost
	}
	return c
}

func newRecord(profile *types.ProfileRecord, now time.Time) *types.AnalysisRecord {
	geo := make(map[string]int, len(profile.GeographicReach))
	for k, v := range profile.GeographicReach {
		geo[k] = v
	}
	return &types.AnalysisRecord{
		Username:     profile.Username,
		AnalysisDate: now.Format(types.DateLayout),
		BasicMetrics: types.BasicMetrics{
			Followers:      profile.Followers,
			Following:      profile.Following,
			PostsCount:     profile.PostsCount,
			EngagementRate: profile.EngagementRate,
		},
		Demographics:    profile.Demographics,
		GeographicReach: geo,
		ContentAnalysis: types.ContentAnalysis{
			Categories: map[string]int{},
			Posts:      []types.PostAnalysis{},
		},
		LanguageDistribution: map[string]float64{},
	}
}

// LanguageDistribution returns the percentage of posts per detected language.
// The denominator is every post, captioned or not. Empty input yields an empty map.
func LanguageDistribution(posts []types.PostRecord) map[string]float64 {
	dist := make(map[string]float64)
	if len(posts) == 0 {
		return dist
	}
	counts := make(map[string]int)
	for _, p := range posts {
		counts[p.Language()]++
	}
	total := float64(len(posts))
	for lang, n := range counts {
		dist[lang] = float64(n) / total * 100
	}
	return dist
}
