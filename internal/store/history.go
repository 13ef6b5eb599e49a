package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/influencescope/internal/types"
)

// History records scrape snapshots and analysis runs in SQLite
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the history database at dbPath
func OpenHistory(dbPath string) (*History, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// migrate creates the database schema
func (h *History) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		username TEXT PRIMARY KEY,
		full_name TEXT,
		followers INTEGER NOT NULL,
		following INTEGER NOT NULL,
		posts_count INTEGER NOT NULL,
		engagement_rate REAL NOT NULL,
		scraped_posts INTEGER NOT NULL,
		scraped_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL,
		analysis_date TEXT NOT NULL,
		engagement_rate REAL,
		posts_scored INTEGER,
		positive_posts INTEGER,
		neutral_posts INTEGER,
		negative_posts INTEGER,
		comments_scored INTEGER,
		top_category TEXT,
		top_language TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_username ON analysis_runs(username, id);
	`

	_, err := h.db.Exec(schema)
	return err
}

// RecordProfile inserts or updates the latest scrape snapshot for a profile
func (h *History) RecordProfile(ctx context.Context, p *types.ProfileRecord, scrapedAt time.Time) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO profiles (username, full_name, followers, following, posts_count,
			engagement_rate, scraped_posts, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			full_name = excluded.full_name,
			followers = excluded.followers,
			following = excluded.following,
			posts_count = excluded.posts_count,
			engagement_rate = excluded.engagement_rate,
			scraped_posts = excluded.scraped_posts,
			scraped_at = excluded.scraped_at
	`, p.Username, p.FullName, p.Followers, p.Following, p.PostsCount,
		p.EngagementRate, len(p.Posts), scrapedAt)

	return err
}

// GetProfile returns the latest snapshot for username, or ErrNoData
func (h *History) GetProfile(ctx context.Context, username string) (*ProfileRow, error) {
	var r ProfileRow
	err := h.db.QueryRowContext(ctx, `
		SELECT username, full_name, followers, following, posts_count,
			engagement_rate, scraped_posts, scraped_at
		FROM profiles WHERE username = ?
	`, username).Scan(&r.Username, &r.FullName, &r.Followers, &r.Following, &r.PostsCount,
		&r.EngagementRate, &r.ScrapedPosts, &r.ScrapedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecordAnalysis appends a run row summarizing a and returns its run ID
func (h *History) RecordAnalysis(ctx context.Context, a *types.AnalysisRecord) (string, error) {
	runID := uuid.NewString()
	content := a.ContentAnalysis

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, username, analysis_date, engagement_rate,
			posts_scored, positive_posts, neutral_posts, negative_posts,
			comments_scored, top_category, top_language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, a.Username, a.AnalysisDate, a.BasicMetrics.EngagementRate,
		content.Sentiment.Total(), content.Sentiment.Positive, content.Sentiment.Neutral, content.Sentiment.Negative,
		content.CommentSentiment.Total(), topIntKey(content.Categories), topFloatKey(a.LanguageDistribution))
	if err != nil {
		return "", err
	}
	return runID, nil
}

// RecentRuns returns up to limit runs for username, newest first
func (h *History) RecentRuns(ctx context.Context, username string, limit int) ([]AnalysisRun, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, run_id, username, analysis_date, engagement_rate,
			posts_scored, positive_posts, neutral_posts, negative_posts,
			comments_scored, top_category, top_language, created_at
		FROM analysis_runs
		WHERE username = ?
		ORDER BY id DESC
		LIMIT ?
	`, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AnalysisRun
	for rows.Next() {
		var r AnalysisRun
		err := rows.Scan(
			&r.ID, &r.RunID, &r.Username, &r.AnalysisDate, &r.EngagementRate,
			&r.PostsScored, &r.PositivePosts, &r.NeutralPosts, &r.NegativePosts,
			&r.CommentsScored, &r.TopCategory, &r.TopLanguage, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// topIntKey returns the key with the highest count, ties broken alphabetically
func topIntKey(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := ""
	for _, k := range keys {
		if best == "" || m[k] > m[best] {
			best = k
		}
	}
	return best
}

func topFloatKey(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := ""
	for _, k := range keys {
		if best == "" || m[k] > m[best] {
			best = k
		}
	}
	return best
}
