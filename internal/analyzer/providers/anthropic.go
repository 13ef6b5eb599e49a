package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/logger"
	"github.com/ibeckermayer/influencescope/internal/store"
	"github.com/ibeckermayer/influencescope/internal/types"
)

// AnthropicProvider classifies text with Anthropic's Claude API
type AnthropicProvider struct {
	client   *anthropic.Client
	provider string // e.g. "anthropic"
	model    string
	rec      recorder
}

// NewAnthropicProvider creates a new Anthropic provider. cache may be nil.
func NewAnthropicProvider(apiKey, model string, cache *store.ExchangeCache, log *logger.Logger) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicProvider{
		client:   &client,
		provider: config.ProviderAnthropic,
		model:    model,
		rec:      newRecorder(cache, log),
	}
}

func (c *AnthropicProvider) ClassifySentiment(ctx context.Context, text string) (types.Classification, error) {
	return c.classify(ctx, TaskSentiment, buildSentimentPrompt(text))
}

func (c *AnthropicProvider) ClassifyCategory(ctx context.Context, text string, labels []string) (types.Classification, error) {
	return c.classify(ctx, TaskCategory, buildCategoryPrompt(text, labels))
}

func (c *AnthropicProvider) DetectLanguage(ctx context.Context, text string) (types.Classification, error) {
	return c.classify(ctx, TaskLanguage, buildLanguagePrompt(text))
}

func (c *AnthropicProvider) classify(ctx context.Context, task, prompt string) (types.Classification, error) {
	// Prefill "{" so Claude continues with the JSON object
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")),
		},
	})
	if err != nil {
		c.rec.record(c.provider, c.model, task, prompt, "", err)
		return types.Classification{}, classifierErr(c.provider, task, fmt.Errorf("failed to call Claude API: %w", err))
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	c.rec.record(c.provider, c.model, task, prompt, responseText, nil)

	if responseText == "" {
		return types.Classification{}, classifierErr(c.provider, task, errors.New("Claude returned empty response"))
	}

	out, err := ParseClassification("{" + responseText)
	if err != nil {
		return types.Classification{}, classifierErr(c.provider, task, err)
	}
	return out, nil
}
