// Package charts renders PNG visualizations of an AnalysisRecord.
package charts

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fogleman/gg"

	"github.com/ibeckermayer/influencescope/internal/logger"
	"github.com/ibeckermayer/influencescope/internal/types"
)

// Chart file names
const (
	CategoryDistribution = "category_distribution.png"
	PostSentiment        = "post_sentiment.png"
	CommentSentiment     = "comment_sentiment.png"
	LanguageDistribution = "language_distribution.png"
	GeographicReach      = "geographic_reach.png"
	EngagementTrend      = "engagement_trend.png"
	LikesVsComments      = "likes_vs_comments.png"
)

// Layout tells the generator where a username's charts go
type Layout interface {
	VisualizationDir(username string) string
}

// Generator writes one PNG per non-empty chart
type Generator struct {
	layout Layout
	log    *logger.Logger
}

// New creates a chart generator
func New(layout Layout, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{layout: layout, log: log}
}

// Generate writes the charts for a and returns the paths written, in a fixed
// order. Charts whose data is empty are skipped.
func (g *Generator) Generate(a *types.AnalysisRecord) ([]string, error) {
	dir := g.layout.VisualizationDir(a.Username)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create visualization dir: %w", err)
	}

	var written []string
	for _, c := range plan(a) {
		path := filepath.Join(dir, c.name)
		if err := c.draw().SavePNG(path); err != nil {
			return written, fmt.Errorf("save %s: %w", c.name, err)
		}
		written = append(written, path)
	}

	g.log.Info("charts generated", "username", a.Username, "count", len(written), "dir", dir)
	return written, nil
}

type chart struct {
	name string
	draw func() *gg.Context
}

// plan lists the charts that have data, in output order
func plan(a *types.AnalysisRecord) []chart {
	content := a.ContentAnalysis
	var out []chart

	if content.CategoryTotal() > 0 {
		cats := sortedSlices(intValues(content.Categories))
		out = append(out, chart{CategoryDistribution, func() *gg.Context {
			return drawPie("Content Category Distribution", cats)
		}})
	}
	if content.Sentiment.Total() > 0 {
		s := sentimentSlices(content.Sentiment)
		out = append(out, chart{PostSentiment, func() *gg.Context {
			return drawPie("Post Sentiment Distribution", s)
		}})
	}
	if content.CommentSentiment.Total() > 0 {
		s := sentimentSlices(content.CommentSentiment)
		out = append(out, chart{CommentSentiment, func() *gg.Context {
			return drawPie("Comment Sentiment Distribution", s)
		}})
	}
	if len(a.LanguageDistribution) > 0 {
		langs := sortedSlices(a.LanguageDistribution)
		out = append(out, chart{LanguageDistribution, func() *gg.Context {
			return drawBars("Language Distribution", "% of posts", langs, "%.1f%%")
		}})
	}
	if len(a.GeographicReach) > 0 {
		geo := sortedSlices(intValues(a.GeographicReach))
		out = append(out, chart{GeographicReach, func() *gg.Context {
			return drawBars("Geographic Reach", "posts", geo, "%.0f")
		}})
	}
	if len(content.Posts) > 0 {
		trend := engagementTrend(content.Posts)
		out = append(out, chart{EngagementTrend, func() *gg.Context {
			return drawLine("Engagement Rate Trend", "engagement %", trend)
		}})

		pts := make([]point, 0, len(content.Posts))
		for _, p := range content.Posts {
			pts = append(pts, point{X: float64(p.Likes), Y: float64(p.Comments), Label: p.PostID})
		}
		out = append(out, chart{LikesVsComments, func() *gg.Context {
			return drawScatter("Likes vs Comments", "likes", "comments", pts)
		}})
	}
	return out
}

// engagementTrend orders posts by posted_on; posts sharing a date keep their order
func engagementTrend(posts []types.PostAnalysis) []point {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b types.PostAnalysis) int {
		return strings.Compare(a.PostedOn, b.PostedOn)
	})
	pts := make([]point, len(sorted))
	for i, p := range sorted {
		label := p.PostedOn
		if label == "" {
			label = p.PostID
		}
		pts[i] = point{X: float64(i), Y: p.EngagementRate, Label: label}
	}
	return pts
}

func sentimentSlices(t types.SentimentTally) []slice {
	out := make([]slice, 0, len(types.Polarities))
	for _, p := range types.Polarities {
		out = append(out, slice{Label: string(p), Value: float64(t.Count(p))})
	}
	return out
}

func intValues(m map[string]int) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = float64(v)
	}
	return out
}

// sortedSlices orders by value descending, then label
func sortedSlices(m map[string]float64) []slice {
	out := make([]slice, 0, len(m))
	for k, v := range m {
		out = append(out, slice{Label: k, Value: v})
	}
	slices.SortFunc(out, func(a, b slice) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	return out
}
