package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ibeckermayer/influencescope/internal/analyzer"
	"github.com/ibeckermayer/influencescope/internal/analyzer/providers"
	"github.com/ibeckermayer/influencescope/internal/auth"
	"github.com/ibeckermayer/influencescope/internal/charts"
	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/logger"
	"github.com/ibeckermayer/influencescope/internal/matching"
	"github.com/ibeckermayer/influencescope/internal/notifier"
	"github.com/ibeckermayer/influencescope/internal/report"
	"github.com/ibeckermayer/influencescope/internal/scheduler"
	"github.com/ibeckermayer/influencescope/internal/scraper"
	"github.com/ibeckermayer/influencescope/internal/store"
	"github.com/ibeckermayer/influencescope/internal/types"
)

const historyFile = "history.db"

// ProfileScraper fetches a fresh ProfileRecord for a username
type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, username string) (*types.ProfileRecord, error)
}

// App holds the application state.
type App struct {
	mu          sync.RWMutex
	progressMu  sync.Mutex
	authManager *auth.Manager // immutable after creation; may be nil
	files       *store.FileStore
	history     *store.History
	progress    *store.Progress
	log         *logger.Logger

	scraperOverride ProfileScraper

	// Mutable fields - use getSnapshot() for concurrent access.
	config   *config.Config
	scraper  ProfileScraper
	analyzer *analyzer.Analyzer
	reports  *report.Builder
	charts   *charts.Generator
	notifier *notifier.Notifier // nil when email is disabled
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config   *config.Config
	scraper  ProfileScraper
	analyzer *analyzer.Analyzer
	reports  *report.Builder
	charts   *charts.Generator
	notifier *notifier.Notifier
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:   a.config,
		scraper:  a.scraper,
		analyzer: a.analyzer,
		reports:  a.reports,
		charts:   a.charts,
		notifier: a.notifier,
	}
}

// Option configures an App
type Option func(*App)

// WithScraper replaces the browser scraper, e.g. with a fixture source
func WithScraper(s ProfileScraper) Option {
	return func(a *App) { a.scraperOverride = s }
}

// New opens the data directory, history database and progress file and builds
// the pipeline components described by cfg.
func New(cfg *config.Config, authManager *auth.Manager, log *logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	files, err := store.NewFileStore(dataDir)
	if err != nil {
		return nil, err
	}
	history, err := store.OpenHistory(filepath.Join(dataDir, historyFile))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	progress, err := store.LoadProgress(dataDir)
	if err != nil {
		history.Close()
		return nil, err
	}

	a := &App{
		authManager: authManager,
		files:       files,
		history:     history,
		progress:    progress,
		log:         log,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.applyConfig(cfg); err != nil {
		history.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the history database
func (a *App) Close() error {
	return a.history.Close()
}

// Files exposes the data directory layout
func (a *App) Files() *store.FileStore {
	return a.files
}

// Config returns the active configuration
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

func (a *App) applyConfig(cfg *config.Config) error {
	s, err := a.build(cfg)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.config = s.config
	a.scraper = s.scraper
	a.analyzer = s.analyzer
	a.reports = s.reports
	a.charts = s.charts
	a.notifier = s.notifier
	a.mu.Unlock()
	return nil
}

func (a *App) build(cfg *config.Config) (snapshot, error) {
	var cache *store.ExchangeCache
	if cfg.Analysis.CacheExchanges {
		dir, err := config.CacheDir()
		if err != nil {
			return snapshot{}, fmt.Errorf("resolve cache dir: %w", err)
		}
		cache = store.NewExchangeCache(filepath.Join(dir, "llm"))
	}

	sentiment, err := providers.New(cfg.Analysis.SentimentProvider, cfg.Analysis, cache, a.log.With("role", "sentiment"))
	if err != nil {
		return snapshot{}, fmt.Errorf("sentiment provider: %w", err)
	}
	category, err := providers.New(cfg.Analysis.CategoryProvider, cfg.Analysis, cache, a.log.With("role", "category"))
	if err != nil {
		return snapshot{}, fmt.Errorf("category provider: %w", err)
	}
	language, err := providers.New(cfg.Analysis.LanguageProvider, cfg.Analysis, cache, a.log.With("role", "language"))
	if err != nil {
		return snapshot{}, fmt.Errorf("language provider: %w", err)
	}

	reports, err := report.New(cfg.Report.TopPosts)
	if err != nil {
		return snapshot{}, err
	}

	s := snapshot{
		config:   cfg,
		analyzer: analyzer.New(sentiment, category, cfg.Analysis.Categories,
			analyzer.WithConcurrency(cfg.Analysis.Concurrency),
			analyzer.WithLogger(a.log.With("component", "analyzer")),
		),
		reports: reports,
		charts:  charts.New(a.files, a.log.With("component", "charts")),
	}

	if a.scraperOverride != nil {
		s.scraper = a.scraperOverride
	} else {
		var cookies scraper.CookieSource
		if a.authManager != nil {
			cookies = a.authManager
		}
		s.scraper = scraper.New(cfg.Scraping, cookies, language, a.log.With("component", "scraper"))
	}

	if cfg.Email.Enabled {
		n, err := notifier.NewFromConfig(cfg.Email)
		if err != nil {
			return snapshot{}, fmt.Errorf("email: %w", err)
		}
		s.notifier = n
	}
	return s, nil
}

// ReloadConfig reloads the configuration from disk.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := a.applyConfig(cfg); err != nil {
		return err
	}
	a.log.Info("configuration reloaded")
	return nil
}

// IsAuthenticated checks if Instagram session cookies are stored.
func (a *App) IsAuthenticated() bool {
	return a.authManager != nil && a.authManager.IsAuthenticated()
}

// Login starts the Instagram login flow in a visible browser.
func (a *App) Login(ctx context.Context) error {
	if a.authManager == nil {
		return errors.New("authentication is not configured")
	}
	a.log.Info("login triggered, opening browser for Instagram authentication")
	if err := a.authManager.Login(ctx); err != nil {
		a.log.Error("login failed", "error", err)
		return err
	}
	a.log.Info("login successful, cookies saved")
	return nil
}

// Logout clears stored Instagram credentials.
func (a *App) Logout() error {
	if a.authManager == nil {
		return nil
	}
	if err := a.authManager.Logout(); err != nil {
		a.log.Error("logout failed", "error", err)
		return err
	}
	a.log.Info("logout successful, cookies cleared")
	return nil
}

// Scrape collects username's profile, persists it and records the snapshot in history.
func (a *App) Scrape(ctx context.Context, username string) (*types.ProfileRecord, error) {
	s := a.getSnapshot()
	username, err := store.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	a.log.Info("scraping profile", "username", username)
	profile, err := s.scraper.ScrapeProfile(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", username, err)
	}

	path, err := a.files.SaveProfile(profile)
	if err != nil {
		return nil, err
	}
	if err := a.history.RecordProfile(ctx, profile, time.Now()); err != nil {
		a.log.Warn("failed to record profile history", "username", profile.Username, "error", err)
	}
	a.setProgress(store.StepDataCollection, store.StatusCompleted)

	a.log.Info("profile saved", "username", profile.Username, "posts", len(profile.Posts), "path", path)
	return profile, nil
}

// Analyze runs the aggregator over the persisted profile of username and
// persists the resulting AnalysisRecord, replacing any earlier one. On failure
// the data_analysis step goes back to the status it had before the run.
func (a *App) Analyze(ctx context.Context, username string) (*types.AnalysisRecord, error) {
	s := a.getSnapshot()
	username, err := store.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	profile, err := a.files.LoadProfile(username)
	if err != nil {
		return nil, err
	}

	prev := a.progressStatus(store.StepDataAnalysis)
	a.setProgress(store.StepDataAnalysis, store.StatusInProgress)
	record, err := s.analyzer.Analyze(ctx, profile)
	if err != nil {
		a.setProgress(store.StepDataAnalysis, prev)
		return nil, fmt.Errorf("analyze %s: %w", username, err)
	}

	path, err := a.files.SaveAnalysis(record)
	if err != nil {
		a.setProgress(store.StepDataAnalysis, prev)
		return nil, err
	}
	if runID, err := a.history.RecordAnalysis(ctx, record); err != nil {
		a.log.Warn("failed to record analysis run", "username", username, "error", err)
	} else {
		a.log.Debug("analysis run recorded", "username", username, "run_id", runID)
	}
	a.setProgress(store.StepDataAnalysis, store.StatusCompleted)

	a.log.Info("analysis saved", "username", username, "path", path)
	return record, nil
}

// Report renders the markdown report for username's latest analysis and writes
// it next to the analysis. Returns the report and its path.
func (a *App) Report(username string) (*report.Report, string, error) {
	s := a.getSnapshot()
	username, err := store.NormalizeUsername(username)
	if err != nil {
		return nil, "", err
	}

	analysis, err := a.files.LoadAnalysis(username)
	if err != nil {
		return nil, "", err
	}
	r, err := s.reports.Build(analysis)
	if err != nil {
		return nil, "", fmt.Errorf("build report for %s: %w", username, err)
	}
	path, err := a.files.SaveReport(username, r.Markdown)
	if err != nil {
		return nil, "", err
	}
	a.log.Info("report saved", "username", username, "path", path)
	return r, path, nil
}

// Charts renders the chart images for username's latest analysis
func (a *App) Charts(username string) ([]string, error) {
	s := a.getSnapshot()
	username, err := store.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	analysis, err := a.files.LoadAnalysis(username)
	if err != nil {
		return nil, err
	}
	paths, err := s.charts.Generate(analysis)
	if err != nil {
		return nil, fmt.Errorf("charts for %s: %w", username, err)
	}
	return paths, nil
}

// EmailReport sends a rendered report when email delivery is enabled.
// Returns false when delivery is disabled.
func (a *App) EmailReport(r *report.Report) (bool, error) {
	s := a.getSnapshot()
	if s.notifier == nil {
		return false, nil
	}
	if err := s.notifier.SendReport(r); err != nil {
		return true, err
	}
	a.log.Info("report emailed", "username", r.Username)
	return true, nil
}

// BatchResult is the outcome of the pipeline for one username
type BatchResult struct {
	Username string
	Analysis *types.AnalysisRecord
	Report   string   // markdown report path
	Charts   []string // chart image paths
	Err      error
}

// Process runs the full pipeline for one username: optional scrape, analysis,
// report, charts when enabled, and email when enabled. A leading '@' on
// username is dropped.
func (a *App) Process(ctx context.Context, username string, scrape bool) BatchResult {
	res := BatchResult{Username: username}
	cfg := a.getSnapshot().config

	username, err := store.NormalizeUsername(username)
	if err != nil {
		res.Err = err
		return res
	}
	res.Username = username

	if scrape {
		if _, err := a.Scrape(ctx, username); err != nil {
			res.Err = err
			return res
		}
	}

	analysis, err := a.Analyze(ctx, username)
	if err != nil {
		res.Err = err
		return res
	}
	res.Analysis = analysis

	r, path, err := a.Report(username)
	if err != nil {
		res.Err = err
		return res
	}
	res.Report = path

	if cfg.Report.Charts {
		paths, err := a.Charts(username)
		if err != nil {
			res.Err = err
			return res
		}
		res.Charts = paths
	}

	if _, err := a.EmailReport(r); err != nil {
		res.Err = err
	}
	return res
}

// Batch runs Process for every username in order. A failure for one username is
// recorded in its result and logged; the batch continues with the next one.
// Only context cancellation stops the loop early.
func (a *App) Batch(ctx context.Context, usernames []string, scrape bool) []BatchResult {
	results := make([]BatchResult, 0, len(usernames))
	for _, username := range usernames {
		if err := ctx.Err(); err != nil {
			results = append(results, BatchResult{Username: username, Err: err})
			continue
		}
		res := a.Process(ctx, username, scrape)
		if res.Err != nil {
			a.log.Warn("batch item failed", "username", username, "error", res.Err)
		}
		results = append(results, res)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	a.log.Info("batch complete", "total", len(results), "failed", failed)
	return results
}

// BatchError joins the per-username failures of a batch, or returns nil
func BatchError(results []BatchResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Username, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Match loads brands from brandsPath (the configured brands file when empty)
// and prices every brand/influencer pair over all persisted analyses.
func (a *App) Match(brandsPath string) ([]matching.BrandOffers, error) {
	if brandsPath == "" {
		brandsPath = a.getSnapshot().config.Matching.BrandsFile
	}
	if brandsPath == "" {
		return nil, errors.New("no brands file given and matching.brands_file is unset")
	}
	brands, err := matching.LoadBrands(brandsPath)
	if err != nil {
		return nil, err
	}

	usernames, err := a.files.ListAnalyses()
	if err != nil {
		return nil, err
	}
	var influencers []matching.Influencer
	for _, u := range usernames {
		analysis, err := a.files.LoadAnalysis(u)
		if err != nil {
			a.log.Warn("skipping unreadable analysis", "username", u, "error", err)
			continue
		}
		influencers = append(influencers, matching.InfluencerFromAnalysis(analysis))
	}

	offers := matching.MatchWithPricing(brands, influencers)
	a.setProgress(store.StepBrandMatching, store.StatusCompleted)
	return offers, nil
}

// Profiles lists the usernames with a persisted profile
func (a *App) Profiles() ([]string, error) {
	return a.files.ListProfiles()
}

// RecentRuns returns the latest analysis runs of username, newest first
func (a *App) RecentRuns(ctx context.Context, username string, limit int) ([]store.AnalysisRun, error) {
	username, err := store.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return a.history.RecentRuns(ctx, username, limit)
}

// Progress returns a copy of the campaign step statuses
func (a *App) Progress() map[store.Step]store.Status {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	out := make(map[store.Step]store.Status, len(a.progress.Steps))
	for k, v := range a.progress.Steps {
		out[k] = v
	}
	return out
}

// SetProgress records a campaign step status
func (a *App) SetProgress(step store.Step, status store.Status) error {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	return a.progress.SetStatus(step, status)
}

func (a *App) progressStatus(step store.Step) store.Status {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	return a.progress.Status(step)
}

func (a *App) setProgress(step store.Step, status store.Status) {
	if err := a.SetProgress(step, status); err != nil {
		a.log.Warn("failed to update progress", "step", step, "error", err)
	}
}

// Schedule runs the watchlist batch on the configured cron schedule until ctx
// is cancelled. When runNow is set the batch also runs once immediately.
func (a *App) Schedule(ctx context.Context, runNow bool) error {
	cfg := a.getSnapshot().config
	if len(cfg.Schedule.Watchlist) == 0 {
		return errors.New("schedule.watchlist is empty")
	}

	sched, err := scheduler.New(cfg.Schedule.Timezone, a.log)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		watchlist := a.getSnapshot().config.Schedule.Watchlist
		return BatchError(a.Batch(ctx, watchlist, true))
	}
	if err := sched.AddBatchJob(cfg.Schedule.Cron, job); err != nil {
		return err
	}

	sched.Start()
	a.log.Info("scheduler started", "cron", cfg.Schedule.Cron, "timezone", cfg.Schedule.Timezone, "watchlist", len(cfg.Schedule.Watchlist))

	if runNow {
		if err := sched.RunNow(ctx, scheduler.BatchJobName, job); err != nil {
			a.log.Warn("initial batch had failures", "error", err)
		}
	}

	<-ctx.Done()
	<-sched.Stop().Done()
	a.log.Info("scheduler stopped")
	return nil
}
