// Command iscope collects Instagram influencer profiles, analyzes their posts and
// renders reports, charts and brand matches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ibeckermayer/influencescope/internal/app"
	"github.com/ibeckermayer/influencescope/internal/auth"
	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/logger"
)

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Options are the global flags plus the selected command
type Options struct {
	ConfigPath string
	LogMode    string
	Command    string
	Args       []string
}

func parseFlags(fs *flag.FlagSet, args []string) (Options, error) {
	var opts Options

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to config.toml (default: platform config dir)")
	fs.StringVar(&opts.LogMode, "log", "", "Log mode: development or production (overrides [log] mode)")

	fs.Usage = func() {
		printUsage(fs.Output())
		fmt.Fprintln(fs.Output(), "\nGlobal flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	rest := fs.Args()
	opts.Command = "menu"
	if len(rest) > 0 {
		opts.Command, opts.Args = rest[0], rest[1:]
	}
	if _, ok := commands[opts.Command]; !ok {
		return Options{}, fmt.Errorf("unknown command %q (run with -h for usage)", opts.Command)
	}
	if opts.ConfigPath != "" {
		opts.ConfigPath = filepath.Clean(opts.ConfigPath)
	}
	return opts, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: iscope [-config path] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
}

// env is what every command gets to work with
type env struct {
	opts Options
	cfg  *config.Config
	log  *logger.Logger
	in   io.Reader
	out  io.Writer

	// app is opened lazily; commands like open and bot-test don't need it
	app *app.App
}

func (e *env) App() (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	var authManager *auth.Manager
	if path, err := auth.DefaultCookieStorePath(); err == nil {
		authManager = auth.NewManager(auth.NewCookieStore(path), e.log.With("component", "auth"))
	} else {
		e.log.Warn("cookie store unavailable, scraping anonymously", "error", err)
	}

	a, err := app.New(e.cfg, authManager, e.log)
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

func run(ctx context.Context, opts Options, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mode := cfg.Log.Mode
	if opts.LogMode != "" {
		mode = opts.LogMode
	}
	log, err := logger.New(mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	e := &env{opts: opts, cfg: cfg, log: log, in: in, out: out}
	defer func() {
		if e.app != nil {
			e.app.Close()
		}
	}()

	return commands[opts.Command].run(ctx, e, opts.Args)
}

// loadConfig reads path, or the default config file when path is empty. A
// missing default file is created with defaults on first run.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFrom(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg, err := config.Load()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// First run - create default config
	cfg = config.Default()
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", err)
	} else if p, err := config.ConfigPath(); err == nil {
		fmt.Fprintf(os.Stderr, "created default config at %s\n", p)
	}
	return cfg, nil
}
