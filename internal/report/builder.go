// Package report renders AnalysisRecords as markdown reports and HTML emails.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ibeckermayer/influencescope/internal/types"
)

// DefaultTopPosts is the number of posts listed under Top Performing Posts
const DefaultTopPosts = 3

// Builder renders analysis reports
type Builder struct {
	topN     int
	now      func() time.Time
	template *template.Template
}

// Option configures a Builder
type Option func(*Builder)

// WithClock overrides the clock used for the report date
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a new report builder. topN below 1 falls back to DefaultTopPosts.
func New(topN int, opts ...Option) (*Builder, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if topN < 1 {
		topN = DefaultTopPosts
	}

	b := &Builder{
		topN:     topN,
		now:      time.Now,
		template: tmpl,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Report is a rendered analysis ready for saving or sending
type Report struct {
	Username  string
	Subject   string
	Markdown  string
	HTMLBody  string
	CreatedAt time.Time
}

// Render returns the markdown report for a. Missing optional fields render as
// N/A or Unknown placeholders.
func (b *Builder) Render(a *types.AnalysisRecord) string {
	return renderMarkdown(newView(a, b.topN, b.now()))
}

// Build renders both the markdown and the HTML form of the report
func (b *Builder) Build(a *types.AnalysisRecord) (*Report, error) {
	now := b.now()
	v := newView(a, b.topN, now)

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, v); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Username:  a.Username,
		Subject:   fmt.Sprintf("Influencer report: @%s, %s", a.Username, now.Format("Jan 2")),
		Markdown:  renderMarkdown(v),
		HTMLBody:  htmlBuf.String(),
		CreatedAt: now,
	}, nil
}

func renderMarkdown(v view) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Influencer Analysis Report: @%s\n\n", v.Username)

	sb.WriteString("## Basic Profile Metrics\n")
	fmt.Fprintf(&sb, "- **Followers:** %s\n", v.Followers)
	fmt.Fprintf(&sb, "- **Following:** %s\n", v.Following)
	fmt.Fprintf(&sb, "- **Posts Count:** %s\n", v.PostsCount)
	fmt.Fprintf(&sb, "- **Average Engagement Rate:** %s%%\n\n", v.EngagementRate)

	sb.WriteString("## Demographics\n")
	fmt.Fprintf(&sb, "- **Estimated Age:** %s\n", v.EstimatedAge)
	fmt.Fprintf(&sb, "- **Gender:** %s\n", v.Gender)
	fmt.Fprintf(&sb, "- **Location:** %s\n\n", v.Location)

	sb.WriteString("## Content Analysis\n\n")
	sb.WriteString("### Content Categories\n")
	writeEntries(&sb, v.Categories, "No category data available")

	sb.WriteString("\n### Content Sentiment\n")
	if len(v.PostSentiment) > 0 {
		sb.WriteString("\n#### Post Sentiment\n")
	}
	writeEntries(&sb, v.PostSentiment, "No post sentiment data available")
	if len(v.CommentSentiment) > 0 {
		sb.WriteString("\n#### Comment Sentiment\n")
	}
	writeEntries(&sb, v.CommentSentiment, "No comment sentiment data available")

	sb.WriteString("\n### Language & Geographic Distribution\n")
	if len(v.Languages) > 0 {
		sb.WriteString("\n#### Language Distribution\n")
	}
	writeEntries(&sb, v.Languages, "No language data available")
	if len(v.Geography) > 0 {
		sb.WriteString("\n#### Geographic Reach\n")
	}
	writeEntries(&sb, v.Geography, "No geographic data available")

	sb.WriteString("\n## Engagement Insights\n")
	if v.HasEngagement {
		fmt.Fprintf(&sb, "- **Average Engagement Rate:** %s\n", v.AverageEngagement)
		fmt.Fprintf(&sb, "- **Highest Engagement Rate:** %s\n", v.HighestEngagement)
		fmt.Fprintf(&sb, "- **Lowest Engagement Rate:** %s\n", v.LowestEngagement)
	} else {
		sb.WriteString("- No engagement data available\n")
	}

	sb.WriteString("\n### Top Performing Posts\n")
	if len(v.TopPosts) == 0 {
		sb.WriteString("- No post data available\n")
	}
	for _, p := range v.TopPosts {
		fmt.Fprintf(&sb, "\n#### Top Post #%d\n", p.Rank)
		fmt.Fprintf(&sb, "- **Engagement Rate:** %s\n", p.EngagementRate)
		fmt.Fprintf(&sb, "- **Likes:** %s\n", p.Likes)
		fmt.Fprintf(&sb, "- **Comments:** %s\n", p.Comments)
		fmt.Fprintf(&sb, "- **Category:** %s\n", p.Category)
		fmt.Fprintf(&sb, "- **Sentiment:** %s\n", p.Sentiment)
		fmt.Fprintf(&sb, "- **Posted On:** %s\n", p.PostedOn)
	}

	sb.WriteString("\n## Summary\n")
	fmt.Fprintf(&sb, "Analysis of the Instagram account @%s based on its recent posts, covering\n", v.Username)
	sb.WriteString("engagement metrics, content categories, sentiment and language distribution.\n\n")
	fmt.Fprintf(&sb, "Report generated on: %s\n", v.Date)

	return sb.String()
}

func writeEntries(sb *strings.Builder, entries []entry, empty string) {
	if len(entries) == 0 {
		sb.WriteString("- " + empty + "\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(sb, "- **%s:** %s\n", e.Label, e.Value)
	}
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>@{{.Username}} influencer report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 640px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #c13584; margin-bottom: 5px; }
        h2 { color: #333; border-bottom: 1px solid #eee; padding-bottom: 4px; }
        .date { color: #666; margin-bottom: 20px; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 10px; }
        td { padding: 4px 8px; border-bottom: 1px solid #f0f0f0; }
        td.value { text-align: right; color: #555; }
        .post { border-bottom: 1px solid #eee; padding: 10px 0; }
        .post:last-child { border-bottom: none; }
        .metrics { color: #666; font-size: 13px; }
        .empty { color: #999; font-style: italic; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>@{{.Username}}</h1>
        <div class="date">{{.Date}}</div>

        <h2>Profile</h2>
        <table>
            <tr><td>Followers</td><td class="value">{{.Followers}}</td></tr>
            <tr><td>Following</td><td class="value">{{.Following}}</td></tr>
            <tr><td>Posts</td><td class="value">{{.PostsCount}}</td></tr>
            <tr><td>Average engagement</td><td class="value">{{.EngagementRate}}%</td></tr>
            <tr><td>Estimated age</td><td class="value">{{.EstimatedAge}}</td></tr>
            <tr><td>Gender</td><td class="value">{{.Gender}}</td></tr>
        </table>

        {{define "entries"}}{{if .}}<table>{{range .}}<tr><td>{{.Label}}</td><td class="value">{{.Value}}</td></tr>{{end}}</table>{{else}}<div class="empty">No data available</div>{{end}}{{end}}

        <h2>Categories</h2>
        {{template "entries" .Categories}}

        <h2>Post sentiment</h2>
        {{template "entries" .PostSentiment}}

        <h2>Comment sentiment</h2>
        {{template "entries" .CommentSentiment}}

        <h2>Languages</h2>
        {{template "entries" .Languages}}

        <h2>Geographic reach</h2>
        {{template "entries" .Geography}}

        <h2>Top posts</h2>
        {{range .TopPosts}}
        <div class="post">
            <strong>#{{.Rank}}</strong> {{.Category}} · {{.Sentiment}} · {{.PostedOn}}
            <div class="metrics">{{.EngagementRate}} engagement · {{.Likes}} likes · {{.Comments}} comments</div>
        </div>
        {{else}}
        <div class="empty">No post data available</div>
        {{end}}

        <div class="footer">
            Generated by influencescope
        </div>
    </div>
</body>
</html>`
