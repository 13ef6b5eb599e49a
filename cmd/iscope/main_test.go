package main

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ibeckermayer/influencescope/internal/config"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("iscope", flag.ContinueOnError)
	opts, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.Command != "menu" || len(opts.Args) != 0 || opts.ConfigPath != "" {
		t.Fatalf("opts=%+v", opts)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("iscope", flag.ContinueOnError)
	opts, err := parseFlags(fs, []string{"-config", "a/b/../config.toml", "-log", "production", "batch", "-no-scrape", "alice"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.ConfigPath != "a/config.toml" {
		t.Fatalf("ConfigPath=%q", opts.ConfigPath)
	}
	if opts.LogMode != "production" || opts.Command != "batch" {
		t.Fatalf("opts=%+v", opts)
	}
	if len(opts.Args) != 2 || opts.Args[0] != "-no-scrape" || opts.Args[1] != "alice" {
		t.Fatalf("Args=%v", opts.Args)
	}
}

func TestParseFlags_UnknownCommand(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("iscope", flag.ContinueOnError)
	if _, err := parseFlags(fs, []string{"dance"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestUsageListsEveryCommand(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printUsage(&buf)
	for _, name := range commandOrder {
		if _, ok := commands[name]; !ok {
			t.Fatalf("%s has no handler", name)
		}
		if !strings.Contains(buf.String(), name) {
			t.Fatalf("usage missing %s", name)
		}
	}
	if len(commandOrder) != len(commands) {
		t.Fatalf("order=%d commands=%d", len(commandOrder), len(commands))
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Log.Mode = "production"
	path := filepath.Join(dir, "config.toml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	return path
}

func TestRunProgressCommand(t *testing.T) {
	t.Parallel()
	path := writeTestConfig(t)

	var out bytes.Buffer
	opts := Options{ConfigPath: path, Command: "progress", Args: []string{"outreach", "in_progress"}}
	if err := run(context.Background(), opts, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "outreach") || !strings.Contains(out.String(), "in_progress") {
		t.Fatalf("out=%s", out.String())
	}

	opts.Args = []string{"outreach", "done"}
	if err := run(context.Background(), opts, strings.NewReader(""), &out); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestRunMenuLoop(t *testing.T) {
	t.Parallel()
	path := writeTestConfig(t)

	var out bytes.Buffer
	in := strings.NewReader("9\n2\n6\nq\n")
	if err := run(context.Background(), Options{ConfigPath: path, Command: "menu"}, in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		`Unknown option "9"`,
		"No scraped profiles yet",
		"1. data_collection",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunBatchWithoutUsernames(t *testing.T) {
	t.Parallel()
	path := writeTestConfig(t)

	var out bytes.Buffer
	err := run(context.Background(), Options{ConfigPath: path, Command: "batch", Args: []string{"-no-scrape"}}, strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected error with an empty watchlist and no profiles")
	}
}

func TestParseChoice(t *testing.T) {
	t.Parallel()
	if i, ok := parseChoice("2", 3); !ok || i != 1 {
		t.Fatalf("i=%d ok=%v", i, ok)
	}
	for _, in := range []string{"0", "4", "x", ""} {
		if _, ok := parseChoice(in, 3); ok {
			t.Fatalf("%q accepted", in)
		}
	}
}
