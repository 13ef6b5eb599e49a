package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/ibeckermayer/influencescope/internal/app"
)

type menuItem struct {
	key   string
	label string
	run   func(m *menu, ctx context.Context) error
}

var menuItems = []menuItem{
	{"1", "Scrape a profile", (*menu).scrape},
	{"2", "Analyze a profile", (*menu).analyze},
	{"3", "Generate report and charts", (*menu).report},
	{"4", "Run batch over all scraped profiles", (*menu).batch},
	{"5", "Match brands", (*menu).match},
	{"6", "Show campaign progress", (*menu).progress},
	{"7", "Show analysis history", (*menu).history},
	{"8", "Login / logout", (*menu).auth},
	{"r", "Reload config", (*menu).reload},
}

// menu is the interactive list/select/run loop
type menu struct {
	e       *env
	app     *app.App
	scanner *bufio.Scanner
}

func runMenu(ctx context.Context, e *env, _ []string) error {
	a, err := e.App()
	if err != nil {
		return err
	}
	m := &menu{e: e, app: a, scanner: bufio.NewScanner(e.in)}
	return m.loop(ctx)
}

func (m *menu) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		m.printMenu()
		choice, ok := m.prompt("Choose an option: ")
		if !ok || choice == "q" {
			return nil
		}

		var item *menuItem
		for i := range menuItems {
			if menuItems[i].key == choice {
				item = &menuItems[i]
			}
		}
		if item == nil {
			fmt.Fprintf(m.e.out, "Unknown option %q\n", choice)
			continue
		}
		if err := item.run(m, ctx); err != nil {
			fmt.Fprintf(m.e.out, "Error: %v\n", err)
		}
	}
}

func (m *menu) printMenu() {
	fmt.Fprintln(m.e.out)
	fmt.Fprintln(m.e.out, "=== InfluenceScope ===")
	if m.app.IsAuthenticated() {
		fmt.Fprintln(m.e.out, "● Connected to Instagram")
	} else {
		fmt.Fprintln(m.e.out, "○ Not connected (anonymous scraping)")
	}
	for _, it := range menuItems {
		fmt.Fprintf(m.e.out, "%s) %s\n", it.key, it.label)
	}
	fmt.Fprintln(m.e.out, "q) Quit")
}

// prompt prints label and reads one trimmed line. ok is false at end of input.
func (m *menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.e.out, label)
	if !m.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.scanner.Text()), true
}

// selectUsername lists the scraped profiles and reads a number or a new name
func (m *menu) selectUsername(allowNew bool) (string, bool) {
	names, err := m.app.Profiles()
	if err != nil {
		fmt.Fprintf(m.e.out, "Error listing profiles: %v\n", err)
	}
	if len(names) == 0 && !allowNew {
		fmt.Fprintln(m.e.out, "No scraped profiles yet")
		return "", false
	}
	for i, n := range names {
		fmt.Fprintf(m.e.out, "  %d. @%s\n", i+1, n)
	}

	label := "Profile number: "
	if allowNew {
		label = "Profile number or username: "
	}
	in, ok := m.prompt(label)
	if !ok || in == "" {
		return "", false
	}
	if i, ok := parseChoice(in, len(names)); ok {
		return names[i], true
	}
	if allowNew {
		return strings.TrimPrefix(in, "@"), true
	}
	fmt.Fprintf(m.e.out, "Invalid selection %q\n", in)
	return "", false
}

func (m *menu) scrape(ctx context.Context) error {
	u, ok := m.selectUsername(true)
	if !ok {
		return nil
	}
	profile, err := m.app.Scrape(ctx, u)
	if err != nil {
		return err
	}
	printProfileSummary(m.e.out, profile)
	return nil
}

func (m *menu) analyze(ctx context.Context) error {
	u, ok := m.selectUsername(false)
	if !ok {
		return nil
	}
	analysis, err := m.app.Analyze(ctx, u)
	if err != nil {
		return err
	}
	printAnalysisSummary(m.e.out, analysis)
	return nil
}

func (m *menu) report(_ context.Context) error {
	u, ok := m.selectUsername(false)
	if !ok {
		return nil
	}
	_, path, err := m.app.Report(u)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.e.out, "Report written to %s\n", path)

	paths, err := m.app.Charts(u)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.e.out, "%d charts written\n", len(paths))
	return nil
}

func (m *menu) batch(ctx context.Context) error {
	names, err := m.app.Profiles()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(m.e.out, "No scraped profiles yet")
		return nil
	}
	printBatchResults(m.e.out, m.app.Batch(ctx, names, false))
	return nil
}

func (m *menu) match(_ context.Context) error {
	path, ok := m.prompt("Brands file (empty for configured): ")
	if !ok {
		return nil
	}
	offers, err := m.app.Match(path)
	if err != nil {
		return err
	}
	printOffers(m.e.out, offers)
	return nil
}

func (m *menu) progress(_ context.Context) error {
	printProgress(m.e.out, m.app.Progress())
	return nil
}

func (m *menu) history(ctx context.Context) error {
	u, ok := m.selectUsername(false)
	if !ok {
		return nil
	}
	runs, err := m.app.RecentRuns(ctx, u, 10)
	if err != nil {
		return err
	}
	printRuns(m.e.out, runs)
	return nil
}

func (m *menu) auth(ctx context.Context) error {
	if m.app.IsAuthenticated() {
		return m.app.Logout()
	}
	return m.app.Login(ctx)
}

func (m *menu) reload(_ context.Context) error {
	if err := m.app.ReloadConfig(); err != nil {
		return err
	}
	fmt.Fprintln(m.e.out, "Configuration reloaded")
	return nil
}
