package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/chromedp/chromedp"
	"github.com/dustin/go-humanize"
	"github.com/pkg/browser"

	"github.com/ibeckermayer/influencescope/internal/analyzer"
	"github.com/ibeckermayer/influencescope/internal/app"
	browseropts "github.com/ibeckermayer/influencescope/internal/browser"
	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/matching"
	"github.com/ibeckermayer/influencescope/internal/store"
	"github.com/ibeckermayer/influencescope/internal/types"
)

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commandOrder = []string{
	"menu", "scrape", "analyze", "report", "charts", "batch", "match",
	"schedule", "history", "progress", "login", "logout", "open", "bot-test",
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"menu":     {"Interactive list/select/run loop (default)", runMenu},
		"scrape":   {"Scrape profiles: scrape [-analyze] <username>...", runScrape},
		"analyze":  {"Analyze scraped profiles: analyze [-all] <username>...", runAnalyze},
		"report":   {"Render markdown reports: report [-email] [-open] <username>...", runReport},
		"charts":   {"Render chart images: charts <username>...", runCharts},
		"batch":    {"Full pipeline: batch [-no-scrape] [username...] (default: watchlist)", runBatch},
		"match":    {"Match brands to analyzed influencers: match [-brands file] [-json]", runMatch},
		"schedule": {"Run the watchlist batch on the cron schedule: schedule [-now]", runSchedule},
		"history":  {"Show recent analysis runs: history [-n 10] <username>", runHistory},
		"progress": {"Show or set campaign progress: progress [<step> <status>]", runProgress},
		"login":    {"Log in to Instagram in a browser window", runLogin},
		"logout":   {"Clear stored Instagram cookies", runLogout},
		"open":     {"Open a location: open <config|data|cache>", runOpen},
		"bot-test": {"Open bot.sannysoft.com to audit browser fingerprint", runBotTest},
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func requireArgs(name string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: at least one username is required", name)
	}
	return nil
}

// forEach runs fn for every username, printing failures and moving on.
// Returns the joined failures.
func forEach(e *env, usernames []string, fn func(username string) error) error {
	var errs []error
	for _, u := range usernames {
		if err := fn(u); err != nil {
			fmt.Fprintf(e.out, "%s: %v\n", u, err)
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
		}
	}
	return errors.Join(errs...)
}

func runScrape(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("scrape", e.out)
	analyze := fs.Bool("analyze", false, "Analyze each profile right after scraping")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs("scrape", fs.Args()); err != nil {
		return err
	}
	a, err := e.App()
	if err != nil {
		return err
	}

	return forEach(e, fs.Args(), func(u string) error {
		profile, err := a.Scrape(ctx, u)
		if err != nil {
			return err
		}
		printProfileSummary(e.out, profile)
		if *analyze {
			analysis, err := a.Analyze(ctx, profile.Username)
			if err != nil {
				return err
			}
			printAnalysisSummary(e.out, analysis)
		}
		return nil
	})
}

func runAnalyze(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("analyze", e.out)
	all := fs.Bool("all", false, "Analyze every scraped profile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := e.App()
	if err != nil {
		return err
	}

	usernames := fs.Args()
	if *all {
		if usernames, err = a.Profiles(); err != nil {
			return err
		}
	}
	if err := requireArgs("analyze", usernames); err != nil {
		return err
	}

	return forEach(e, usernames, func(u string) error {
		analysis, err := a.Analyze(ctx, u)
		if err != nil {
			return err
		}
		printAnalysisSummary(e.out, analysis)
		return nil
	})
}

func runReport(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("report", e.out)
	email := fs.Bool("email", false, "Email the report (requires [email] enabled)")
	open := fs.Bool("open", false, "Open the report file after writing it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs("report", fs.Args()); err != nil {
		return err
	}
	a, err := e.App()
	if err != nil {
		return err
	}

	return forEach(e, fs.Args(), func(u string) error {
		r, path, err := a.Report(u)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "report written to %s\n", path)
		if *email {
			sent, err := a.EmailReport(r)
			if err != nil {
				return err
			}
			if !sent {
				fmt.Fprintln(e.out, "email is disabled in config; report not sent")
			}
		}
		if *open {
			return browser.OpenFile(path)
		}
		return nil
	})
}

func runCharts(_ context.Context, e *env, args []string) error {
	if err := requireArgs("charts", args); err != nil {
		return err
	}
	a, err := e.App()
	if err != nil {
		return err
	}
	return forEach(e, args, func(u string) error {
		paths, err := a.Charts(u)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(e.out, p)
		}
		return nil
	})
}

func runBatch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("batch", e.out)
	noScrape := fs.Bool("no-scrape", false, "Use already scraped profiles instead of scraping again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := e.App()
	if err != nil {
		return err
	}

	usernames := fs.Args()
	if len(usernames) == 0 {
		usernames = e.cfg.Schedule.Watchlist
	}
	if len(usernames) == 0 && *noScrape {
		if usernames, err = a.Profiles(); err != nil {
			return err
		}
	}
	if len(usernames) == 0 {
		return errors.New("batch: no usernames given and schedule.watchlist is empty")
	}

	results := a.Batch(ctx, usernames, !*noScrape)
	printBatchResults(e.out, results)
	return app.BatchError(results)
}

func runMatch(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("match", e.out)
	brands := fs.String("brands", "", "Brands TOML file (default: matching.brands_file)")
	asJSON := fs.Bool("json", false, "Print the matches as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := e.App()
	if err != nil {
		return err
	}

	offers, err := a.Match(*brands)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(offers)
	}
	printOffers(e.out, offers)
	return nil
}

func runSchedule(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("schedule", e.out)
	now := fs.Bool("now", false, "Also run the batch once immediately")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := e.App()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "running %q (%s) over %d profiles, Ctrl-C to stop\n",
		e.cfg.Schedule.Cron, e.cfg.Schedule.Timezone, len(e.cfg.Schedule.Watchlist))
	return a.Schedule(ctx, *now)
}

func runHistory(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("history", e.out)
	limit := fs.Int("n", 10, "Number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("history: exactly one username is required")
	}
	a, err := e.App()
	if err != nil {
		return err
	}

	runs, err := a.RecentRuns(ctx, fs.Arg(0), *limit)
	if err != nil {
		return err
	}
	printRuns(e.out, runs)
	return nil
}

func runProgress(_ context.Context, e *env, args []string) error {
	a, err := e.App()
	if err != nil {
		return err
	}
	switch len(args) {
	case 0:
	case 2:
		if err := a.SetProgress(store.Step(args[0]), store.Status(args[1])); err != nil {
			return err
		}
	default:
		return errors.New("progress: expected no arguments or <step> <status>")
	}
	printProgress(e.out, a.Progress())
	return nil
}

func runLogin(ctx context.Context, e *env, _ []string) error {
	a, err := e.App()
	if err != nil {
		return err
	}
	if err := a.Login(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "logged in")
	return nil
}

func runLogout(_ context.Context, e *env, _ []string) error {
	a, err := e.App()
	if err != nil {
		return err
	}
	if err := a.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "logged out")
	return nil
}

func runOpen(_ context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: iscope open <config|data|cache>")
	}

	var path string
	var err error
	switch args[0] {
	case "config":
		path = e.opts.ConfigPath
		if path == "" {
			path, err = config.ConfigPath()
		}
	case "data":
		path, err = e.cfg.ResolveDataDir()
	case "cache":
		path, err = config.CacheDir()
	default:
		return fmt.Errorf("unknown target: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get path: %w", err)
	}
	return browser.OpenFile(path)
}

func runBotTest(ctx context.Context, e *env, _ []string) error {
	e.log.Info("opening bot.sannysoft.com with stealth browser options")

	// Non-headless so you can see it
	browserCtx, cancel := browseropts.NewContext(ctx, false, e.log)
	defer cancel()

	err := chromedp.Run(browserCtx,
		chromedp.Navigate("https://bot.sannysoft.com"),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	fmt.Fprintln(e.out, "Press Enter to close the browser...")
	_, _ = fmt.Fscanln(e.in)
	return nil
}

func printProfileSummary(w io.Writer, p *types.ProfileRecord) {
	fmt.Fprintf(w, "@%s: %s followers, %d posts scraped, engagement %.2f%%\n",
		p.Username, humanize.Comma(int64(p.Followers)), len(p.Posts), p.EngagementRate)

	dist := analyzer.LanguageDistribution(p.Posts)
	langs := make([]string, 0, len(dist))
	for l := range dist {
		langs = append(langs, l)
	}
	slices.SortFunc(langs, func(a, b string) int {
		if c := cmp.Compare(dist[b], dist[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	for _, l := range langs {
		fmt.Fprintf(w, "  %s: %.1f%%\n", l, dist[l])
	}
}

func printAnalysisSummary(w io.Writer, a *types.AnalysisRecord) {
	c := a.ContentAnalysis
	fmt.Fprintf(w, "@%s analyzed: %d posts scored (%d positive, %d neutral, %d negative), %d comments scored\n",
		a.Username, c.Sentiment.Total(), c.Sentiment.Positive, c.Sentiment.Neutral, c.Sentiment.Negative,
		c.CommentSentiment.Total())
}

func printBatchResults(w io.Writer, results []app.BatchResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", r.Username, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s: ok, report %s, %d charts\n", r.Username, r.Report, len(r.Charts))
	}
}

func printOffers(w io.Writer, offers []matching.BrandOffers) {
	for _, bo := range offers {
		fmt.Fprintf(w, "%s (%s)\n", bo.Brand.Name, bo.Brand.Industry)
		if len(bo.Offers) == 0 {
			fmt.Fprintln(w, "  no matching influencers")
			continue
		}
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  influencer\tcontent\treach\tmin\tmax\trecommended")
		for _, o := range bo.Offers {
			fmt.Fprintf(tw, "  @%s\t%s\t%s\t$%.2f\t$%.2f\t$%.2f\n",
				o.Influencer.Name, o.Influencer.ContentType, humanize.Comma(int64(o.Influencer.AverageReach)),
				o.Pricing.MinPrice, o.Pricing.MaxPrice, o.Pricing.RecommendedPrice)
		}
		tw.Flush()
	}
}

func printRuns(w io.Writer, runs []store.AnalysisRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no analysis runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "when\tposts\t+/=/-\tcomments\ttop category\ttop language\tengagement")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%d/%d/%d\t%d\t%s\t%s\t%.2f%%\n",
			humanize.Time(r.CreatedAt), r.PostsScored, r.PositivePosts, r.NeutralPosts, r.NegativePosts,
			r.CommentsScored, r.TopCategory, r.TopLanguage, r.EngagementRate)
	}
	tw.Flush()
}

func printProgress(w io.Writer, progress map[store.Step]store.Status) {
	for i, s := range store.Steps {
		fmt.Fprintf(w, "%d. %-18s %s\n", i+1, s, progress[s])
	}
}

// parseChoice reads a 1-based menu index
func parseChoice(s string, n int) (int, bool) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}
