package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LLMExchange represents a prompt/response pair for caching
type LLMExchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"` // e.g. "anthropic"
	Model     string    `json:"model"`
	Task      string    `json:"task"` // sentiment, category or language
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// ExchangeCache writes LLM exchanges to timestamped JSON files for debugging
type ExchangeCache struct {
	dir string
}

// NewExchangeCache returns a cache rooted at dir. The directory is created on first save.
func NewExchangeCache(dir string) *ExchangeCache {
	return &ExchangeCache{dir: dir}
}

// Dir returns the cache directory
func (c *ExchangeCache) Dir() string {
	return c.dir
}

// Save serializes an exchange to a timestamped file and returns its path.
// Several exchanges within the same second get a numeric suffix.
func (c *ExchangeCache) Save(exchange LLMExchange) (string, error) {
	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now()
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", err
	}

	// Dashes instead of colons for filesystem compatibility
	base := exchange.Timestamp.Format("2006-01-02T15-04-05")
	path := filepath.Join(c.dir, base+".json")
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(c.dir, fmt.Sprintf("%s_%d.json", base, i))
	}

	if err := writeJSONAtomic(path, exchange); err != nil {
		return "", err
	}
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
