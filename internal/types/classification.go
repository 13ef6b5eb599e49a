package types

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrInvalidClassification is returned when a classifier result fails validation
var ErrInvalidClassification = errors.New("invalid classification")

// Classification is a single label chosen by a classifier together with its confidence
type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Validate checks that the label is set and the score is a probability.
// When allowed is non-empty the label must also be one of them.
func (c Classification) Validate(allowed []string) error {
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidClassification)
	}
	if math.IsNaN(c.Score) || c.Score < 0 || c.Score > 1 {
		return fmt.Errorf("%w: score %v out of range", ErrInvalidClassification, c.Score)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, c.Label) {
		return fmt.Errorf("%w: label %q not in candidate set", ErrInvalidClassification, c.Label)
	}
	return nil
}

// ClassifierError reports a failed classifier call
type ClassifierError struct {
	Provider string
	Op       string // "sentiment", "category" or "language"
	Err      error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("%s %s classifier: %v", e.Provider, e.Op, e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}

// Defaults substituted when a classifier call fails or is skipped
var (
	NeutralSentiment  = Classification{Label: string(Neutral), Score: 1.0}
	UncategorizedPost = Classification{Label: Uncategorized, Score: 1.0}
)
