package analyzer

import (
	"strings"
	"unicode"

	"github.com/ibeckermayer/influencescope/internal/types"
)

// MapPolarity folds a classifier label into one of positive/neutral/negative.
//
// Labels containing "positive" (any case) or starting with a rating of 4 or more
// are positive; labels containing "negative" or starting with a rating of 2 or
// less are negative; everything else, including labels with no leading digit, is
// neutral. Post captions and comments go through this same rule.
func MapPolarity(label string) types.Polarity {
	l := strings.ToLower(strings.TrimSpace(label))
	rating, hasRating := leadingRating(l)

	switch {
	case strings.Contains(l, "positive") || (hasRating && rating >= 4):
		return types.Positive
	case strings.Contains(l, "negative") || (hasRating && rating <= 2):
		return types.Negative
	default:
		return types.Neutral
	}
}

// leadingRating parses the first character as a star rating ("5 stars" -> 5)
func leadingRating(label string) (int, bool) {
	if label == "" {
		return 0, false
	}
	r := rune(label[0])
	if !unicode.IsDigit(r) {
		return 0, false
	}
	return int(r - '0'), true
}
