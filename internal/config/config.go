package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const appName = "influencescope"

// Classifier providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderLexicon   = "lexicon"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	DataDir  string         `toml:"data_dir"`
	Scraping ScrapingConfig `toml:"scraping"`
	Analysis AnalysisConfig `toml:"analysis"`
	Report   ReportConfig   `toml:"report"`
	Schedule ScheduleConfig `toml:"schedule"`
	Email    EmailConfig    `toml:"email"`
	Matching MatchingConfig `toml:"matching"`
	Log      LogConfig      `toml:"log"`
}

type ScrapingConfig struct {
	Headless            bool `toml:"headless"`
	PostsPerProfile     int  `toml:"posts_per_profile"`
	ProfileDelaySeconds int  `toml:"profile_delay_seconds"`
	PostDelaySeconds    int  `toml:"post_delay_seconds"`
	MaxCommentsPerPost  int  `toml:"max_comments_per_post"`
}

type AnalysisConfig struct {
	SentimentProvider string   `toml:"sentiment_provider"`
	CategoryProvider  string   `toml:"category_provider"`
	LanguageProvider  string   `toml:"language_provider"`
	APIKey            string   `toml:"api_key"`
	Model             string   `toml:"model"`
	OpenAIAPIKey      string   `toml:"openai_api_key"`
	OpenAIModel       string   `toml:"openai_model"`
	Categories        []string `toml:"categories"`
	Concurrency       int      `toml:"concurrency"`
	CacheExchanges    bool     `toml:"cache_exchanges"`
}

type ReportConfig struct {
	TopPosts int  `toml:"top_posts"`
	Charts   bool `toml:"charts"`
}

type ScheduleConfig struct {
	Cron      string   `toml:"cron"`
	Timezone  string   `toml:"timezone"`
	Watchlist []string `toml:"watchlist"`
}

type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

type MatchingConfig struct {
	BrandsFile string `toml:"brands_file"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

// DefaultCategories is the closed label set used for zero-shot post categorization
var DefaultCategories = []string{
	"Fashion", "Beauty", "Lifestyle", "Travel", "Food",
	"Fitness", "Tech", "Gaming", "Business", "Education",
	"Entertainment", "Arts", "Sports", "Health", "Parenting",
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Scraping: ScrapingConfig{
			Headless:            true,
			PostsPerProfile:     7,
			ProfileDelaySeconds: 5,
			PostDelaySeconds:    2,
			MaxCommentsPerPost:  50,
		},
		Analysis: AnalysisConfig{
			SentimentProvider: ProviderLexicon,
			CategoryProvider:  ProviderLexicon,
			LanguageProvider:  ProviderLexicon,
			Model:             "claude-sonnet-4-20250514",
			OpenAIModel:       "gpt-5-mini",
			Categories:        append([]string(nil), DefaultCategories...),
			Concurrency:       1,
		},
		Report: ReportConfig{
			TopPosts: 3,
			Charts:   true,
		},
		Schedule: ScheduleConfig{
			Cron:      "0 6 * * *",
			Timezone:  "UTC",
			Watchlist: []string{},
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
		Log: LogConfig{
			Mode: "development",
		},
	}
}

// Validate reports the first configuration problem found
func (c *Config) Validate() error {
	if c.Scraping.PostsPerProfile <= 0 {
		return errors.New("scraping.posts_per_profile must be > 0")
	}
	if c.Scraping.ProfileDelaySeconds < 0 || c.Scraping.PostDelaySeconds < 0 {
		return errors.New("scraping delays must be >= 0")
	}
	if c.Scraping.MaxCommentsPerPost < 0 {
		return errors.New("scraping.max_comments_per_post must be >= 0")
	}
	for name, p := range map[string]string{
		"sentiment_provider": c.Analysis.SentimentProvider,
		"category_provider":  c.Analysis.CategoryProvider,
		"language_provider":  c.Analysis.LanguageProvider,
	} {
		switch p {
		case ProviderAnthropic:
			if c.Analysis.APIKey == "" {
				return fmt.Errorf("analysis.%s is %s but analysis.api_key is empty", name, p)
			}
		case ProviderOpenAI:
			if c.Analysis.OpenAIAPIKey == "" {
				return fmt.Errorf("analysis.%s is %s but analysis.openai_api_key is empty", name, p)
			}
		case ProviderLexicon:
		default:
			return fmt.Errorf("analysis.%s: unknown provider %q", name, p)
		}
	}
	if len(c.Analysis.Categories) == 0 {
		return errors.New("analysis.categories must not be empty")
	}
	if c.Analysis.Concurrency < 1 {
		return errors.New("analysis.concurrency must be >= 1")
	}
	if c.Report.TopPosts < 0 {
		return errors.New("report.top_posts must be >= 0")
	}
	if c.Email.Enabled && (c.Email.SMTPHost == "" || c.Email.ToAddr == "") {
		return errors.New("email is enabled but smtp_host or to_address is empty")
	}
	return nil
}

// ApplyEnv overlays secrets and paths from the environment. A .env file in the
// working directory is loaded first if present; real environment variables win.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(".env")
}

func (c *Config) applyEnv(dotenv string) error {
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotenv, err)
	}

	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" && c.Analysis.APIKey == "" {
		c.Analysis.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" && c.Analysis.OpenAIAPIKey == "" {
		c.Analysis.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ISCOPE_DATA_DIR")); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("ISCOPE_SMTP_PASS"); v != "" {
		c.Email.SMTPPass = v
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory.
// On macOS this is ~/Library/Caches/influencescope/
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// ResolveDataDir returns the configured data directory, falling back to
// <config dir>/data when unset.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Load reads config from the default path
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path. Keys missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
