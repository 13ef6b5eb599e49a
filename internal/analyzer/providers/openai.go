package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/logger"
	"github.com/ibeckermayer/influencescope/internal/store"
	"github.com/ibeckermayer/influencescope/internal/types"
)

var classificationSchema = GenerateSchema[classificationResult]()

// OpenAIProvider classifies text with the OpenAI Responses API and a strict JSON schema
type OpenAIProvider struct {
	client   *openai.Client
	provider string
	model    string
	rec      recorder

	// waits between retries, indexed by attempt
	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
}

// NewOpenAIProvider creates a new OpenAI provider. cache may be nil.
func NewOpenAIProvider(apiKey, model string, cache *store.ExchangeCache, log *logger.Logger) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client:           &client,
		provider:         config.ProviderOpenAI,
		model:            model,
		rec:              newRecorder(cache, log),
		rateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second},
		serverErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

func (o *OpenAIProvider) ClassifySentiment(ctx context.Context, text string) (types.Classification, error) {
	return o.classify(ctx, TaskSentiment, buildSentimentPrompt(text))
}

func (o *OpenAIProvider) ClassifyCategory(ctx context.Context, text string, labels []string) (types.Classification, error) {
	return o.classify(ctx, TaskCategory, buildCategoryPrompt(text, labels))
}

func (o *OpenAIProvider) DetectLanguage(ctx context.Context, text string) (types.Classification, error) {
	return o.classify(ctx, TaskLanguage, buildLanguagePrompt(text))
}

func (o *OpenAIProvider) classify(ctx context.Context, task, prompt string) (types.Classification, error) {
	if o.model == "" {
		return types.Classification{}, classifierErr(o.provider, task, errors.New("model is empty"))
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "Classification",
			Schema:      classificationSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Single label with confidence"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(256),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := o.callWithRetry(ctx, params)
	if err != nil {
		o.rec.record(o.provider, o.model, task, prompt, "", err)
		return types.Classification{}, classifierErr(o.provider, task, err)
	}

	text := resp.OutputText()
	o.rec.record(o.provider, o.model, task, prompt, text, nil)

	out, err := ParseClassification(text)
	if err != nil {
		return types.Classification{}, classifierErr(o.provider, task, err)
	}
	return out, nil
}

func (o *OpenAIProvider) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxRetries = 3

	for attempt := range maxRetries {
		resp, err := o.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err):
			wait = o.rateLimitWaits[attempt]
		case isServerError(err):
			wait = o.serverErrorWaits[attempt]
		default:
			return nil, err
		}
		if attempt == maxRetries-1 {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

// GenerateSchema reflects T into a JSON schema that satisfies OpenAI strict mode
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	ensureStrict(m)
	return m
}

// ensureStrict marks every object closed and all of its properties required
func ensureStrict(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok && len(props) > 0 {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			schema["required"] = required
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				ensureStrict(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		ensureStrict(items)
	}
}
