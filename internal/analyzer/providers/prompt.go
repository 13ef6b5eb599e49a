package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ibeckermayer/influencescope/internal/types"
)

// Tasks sent to LLM providers
const (
	TaskSentiment = "sentiment"
	TaskCategory  = "category"
	TaskLanguage  = "language"
)

// sentimentLabels are the labels the sentiment prompt allows
var sentimentLabels = []string{"positive", "neutral", "negative"}

// classificationResult is the JSON object every prompt asks for
type classificationResult struct {
	Label string  `json:"label" jsonschema:"required"`
	Score float64 `json:"score" jsonschema:"required"`
}

const responseRules = "IMPORTANT: Respond with ONLY a valid JSON object. No markdown, no code blocks, no explanation - just the raw JSON starting with { and ending with }.\n"

// buildSentimentPrompt asks for a single positive/neutral/negative label
func buildSentimentPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("You are classifying the sentiment of a social media caption or comment.\n\n")
	sb.WriteString("## Text\n")
	sb.WriteString(text)
	sb.WriteString("\n\n## Task\n\n")
	sb.WriteString(fmt.Sprintf("1. label: one of %s\n", strings.Join(sentimentLabels, ", ")))
	sb.WriteString("2. score (0.0 to 1.0): your confidence in the label\n\n")
	sb.WriteString(responseRules)
	sb.WriteString(`Example: {"label": "positive", "score": 0.93}`)
	sb.WriteString("\n")

	return sb.String()
}

// buildCategoryPrompt asks for exactly one label out of a closed set
func buildCategoryPrompt(text string, labels []string) string {
	var sb strings.Builder

	sb.WriteString("You are categorizing an influencer's social media post by topic.\n\n")
	sb.WriteString("## Caption\n")
	sb.WriteString(text)
	sb.WriteString("\n\n## Candidate Categories\n")
	for _, l := range labels {
		sb.WriteString("- " + l + "\n")
	}
	sb.WriteString("\n## Task\n\n")
	sb.WriteString("1. label: the single best matching category, copied exactly from the list above\n")
	sb.WriteString("2. score (0.0 to 1.0): your confidence in the label\n\n")
	sb.WriteString(responseRules)
	sb.WriteString(`Example: {"label": "Travel", "score": 0.71}`)
	sb.WriteString("\n")

	return sb.String()
}

// buildLanguagePrompt asks for an ISO 639-1 code
func buildLanguagePrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("You are detecting the language of a social media caption.\n\n")
	sb.WriteString("## Caption\n")
	sb.WriteString(text)
	sb.WriteString("\n\n## Task\n\n")
	sb.WriteString("1. label: the ISO 639-1 code of the dominant language (e.g. en, hi, ml)\n")
	sb.WriteString("2. score (0.0 to 1.0): your confidence in the label\n\n")
	sb.WriteString(responseRules)
	sb.WriteString(`Example: {"label": "en", "score": 0.99}`)
	sb.WriteString("\n")

	return sb.String()
}

// ParseClassification decodes a {"label","score"} object from raw model output,
// tolerating markdown fences and surrounding prose.
func ParseClassification(raw string) (types.Classification, error) {
	var r classificationResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &r); err != nil {
		return types.Classification{}, fmt.Errorf("failed to parse classification JSON: %w (response was: %.500s)", err, raw)
	}
	return types.Classification{Label: strings.TrimSpace(r.Label), Score: r.Score}, nil
}

var (
	fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*?\\})\\s*\\n?```")
	bareObject   = regexp.MustCompile(`(?s)(\{.*\})`)
)

// extractJSON pulls the JSON object out of a response, handling markdown code blocks
func extractJSON(text string) string {
	if m := fencedObject.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if m := bareObject.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}
