package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/logger"
	"github.com/ibeckermayer/influencescope/internal/store"
	"github.com/ibeckermayer/influencescope/internal/types"
)

// Classifier is implemented by every provider. A single provider value can serve
// any of the sentiment, category and language roles.
type Classifier interface {
	ClassifySentiment(ctx context.Context, text string) (types.Classification, error)
	ClassifyCategory(ctx context.Context, text string, labels []string) (types.Classification, error)
	DetectLanguage(ctx context.Context, text string) (types.Classification, error)
}

// New builds the provider called name from the analysis config.
// cache may be nil to disable exchange caching.
func New(name string, cfg config.AnalysisConfig, cache *store.ExchangeCache, log *logger.Logger) (Classifier, error) {
	switch name {
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("anthropic provider requires analysis.api_key or ANTHROPIC_API_KEY")
		}
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cache, log), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("openai provider requires analysis.openai_api_key or OPENAI_API_KEY")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cache, log), nil
	case config.ProviderLexicon, "":
		return NewLexicon(), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", name)
	}
}

// recorder writes LLM exchanges to the cache when one is configured
type recorder struct {
	cache *store.ExchangeCache
	log   *logger.Logger
}

func newRecorder(cache *store.ExchangeCache, log *logger.Logger) recorder {
	if log == nil {
		log = logger.Nop()
	}
	return recorder{cache: cache, log: log}
}

func (r recorder) record(provider, model, task, prompt, response string, callErr error) {
	if r.cache == nil {
		return
	}
	ex := store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  provider,
		Model:     model,
		Task:      task,
		Prompt:    prompt,
		Response:  response,
	}
	if callErr != nil {
		ex.Error = callErr.Error()
	}
	if path, err := r.cache.Save(ex); err != nil {
		r.log.Warn("failed to cache LLM exchange", "error", err)
	} else {
		r.log.Debug("cached LLM exchange", "path", path)
	}
}

func classifierErr(provider, task string, err error) error {
	return &types.ClassifierError{Provider: provider, Op: task, Err: err}
}
