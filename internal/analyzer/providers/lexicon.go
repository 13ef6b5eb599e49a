package providers

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"

	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/types"
)

// ErrNoSignal is returned by the lexicon provider when the text carries nothing it can score
var ErrNoSignal = errors.New("no lexicon signal")

var positiveWords = []string{
	"amazing", "awesome", "beautiful", "best", "blessed", "brilliant", "excellent",
	"excited", "fantastic", "favorite", "favourite", "fun", "glad", "good", "great",
	"happy", "incredible", "inspiring", "love", "loved", "lovely", "nice", "perfect",
	"proud", "stunning", "super", "thank", "thanks", "wonderful", "wow", "yay",
	"❤", "😍", "🔥", "😊", "🥰", "👏",
}

var negativeWords = []string{
	"angry", "annoying", "awful", "bad", "boring", "broken", "disappointed",
	"disappointing", "disgusting", "fail", "hate", "hated", "horrible", "poor",
	"sad", "scam", "sick", "sorry", "terrible", "ugly", "upset", "waste", "worse",
	"worst", "wrong", "😡", "😢", "👎",
}

// categoryKeywords maps the default category labels to caption keywords.
// Custom labels without an entry can only match by their own name.
var categoryKeywords = map[string][]string{
	"Fashion":       {"fashion", "outfit", "ootd", "style", "dress", "wear", "designer"},
	"Beauty":        {"beauty", "makeup", "skincare", "lipstick", "glow", "hair", "nails"},
	"Lifestyle":     {"lifestyle", "life", "daily", "vibes", "weekend", "home", "mood"},
	"Travel":        {"travel", "trip", "wanderlust", "beach", "vacation", "explore", "flight", "hotel"},
	"Food":          {"food", "recipe", "delicious", "dinner", "lunch", "breakfast", "foodie", "cook", "yummy"},
	"Fitness":       {"fitness", "workout", "gym", "training", "yoga", "run", "cardio"},
	"Tech":          {"tech", "gadget", "phone", "app", "software", "ai", "unboxing", "laptop"},
	"Gaming":        {"gaming", "game", "gamer", "stream", "esports", "playstation", "xbox"},
	"Business":      {"business", "startup", "entrepreneur", "brand", "marketing", "sale", "launch"},
	"Education":     {"learn", "education", "study", "tips", "tutorial", "course", "school"},
	"Entertainment": {"movie", "film", "music", "show", "concert", "comedy", "dance"},
	"Arts":          {"art", "artist", "painting", "drawing", "photography", "design", "craft"},
	"Sports":        {"sports", "football", "cricket", "match", "team", "goal", "tennis"},
	"Health":        {"health", "wellness", "healthy", "mental", "doctor", "nutrition", "sleep"},
	"Parenting":     {"baby", "kids", "mom", "dad", "parenting", "family", "toddler"},
}

// Lexicon is an offline keyword and script based classifier
type Lexicon struct{}

// NewLexicon returns the offline classifier
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

func (l *Lexicon) ClassifySentiment(_ context.Context, text string) (types.Classification, error) {
	tokens := tokenize(text)
	pos, neg := 0, 0
	for _, t := range tokens {
		if slices.Contains(positiveWords, t) {
			pos++
		}
		if slices.Contains(negativeWords, t) {
			neg++
		}
	}

	total := pos + neg
	switch {
	case total == 0:
		return types.Classification{Label: string(types.Neutral), Score: 0.5}, nil
	case pos > neg:
		return types.Classification{Label: string(types.Positive), Score: round2(float64(pos) / float64(total))}, nil
	case neg > pos:
		return types.Classification{Label: string(types.Negative), Score: round2(float64(neg) / float64(total))}, nil
	default:
		return types.Classification{Label: string(types.Neutral), Score: 0.5}, nil
	}
}

// ClassifyCategory picks the label whose keywords occur most often. Ties go to
// the label listed first.
func (l *Lexicon) ClassifyCategory(_ context.Context, text string, labels []string) (types.Classification, error) {
	tokens := tokenize(text)
	best, bestHits, totalHits := "", 0, 0
	for _, label := range labels {
		keywords := append([]string{strings.ToLower(label)}, categoryKeywords[label]...)
		hits := 0
		for _, t := range tokens {
			if slices.Contains(keywords, t) {
				hits++
			}
		}
		totalHits += hits
		if hits > bestHits {
			best, bestHits = label, hits
		}
	}
	if best == "" {
		return types.Classification{}, classifierErr(config.ProviderLexicon, TaskCategory, ErrNoSignal)
	}
	return types.Classification{Label: best, Score: round2(float64(bestHits) / float64(totalHits))}, nil
}

var scriptLanguages = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Devanagari, "hi"},
	{unicode.Malayalam, "ml"},
	{unicode.Tamil, "ta"},
	{unicode.Telugu, "te"},
	{unicode.Kannada, "kn"},
	{unicode.Bengali, "bn"},
	{unicode.Gujarati, "gu"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Arabic, "ar"},
	{unicode.Cyrillic, "ru"},
	{unicode.Hangul, "ko"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Han, "zh"},
	{unicode.Thai, "th"},
	{unicode.Greek, "el"},
	{unicode.Latin, latinScript},
}

const latinScript = "latn"

// latinLanguages are the Latin-script languages the n-gram detector chooses
// between. Loading every lingua model costs about a gigabyte of memory.
var latinLanguages = []lingua.Language{
	lingua.English, lingua.Spanish, lingua.French, lingua.German,
	lingua.Portuguese, lingua.Italian, lingua.Dutch, lingua.Indonesian,
	lingua.Tagalog, lingua.Turkish, lingua.Polish, lingua.Swedish,
}

var latinDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().FromLanguages(latinLanguages...).Build()
})

// DetectLanguage guesses the language from the dominant Unicode script. Text
// that is mostly Latin script goes through lingua's n-gram models.
func (l *Lexicon) DetectLanguage(_ context.Context, text string) (types.Classification, error) {
	counts := make(map[string]int)
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, s := range scriptLanguages {
			if unicode.Is(s.table, r) {
				counts[s.code]++
				break
			}
		}
	}
	if letters == 0 {
		return types.Classification{}, classifierErr(config.ProviderLexicon, TaskLanguage, ErrNoSignal)
	}

	best, bestN := "", 0
	for _, s := range scriptLanguages {
		if n := counts[s.code]; n > bestN {
			best, bestN = s.code, n
		}
	}
	if best == "" {
		return types.Classification{}, classifierErr(config.ProviderLexicon, TaskLanguage, ErrNoSignal)
	}
	if best == latinScript {
		return detectLatin(text)
	}
	return types.Classification{Label: best, Score: round2(float64(bestN) / float64(letters))}, nil
}

func detectLatin(text string) (types.Classification, error) {
	detector := latinDetector()
	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return types.Classification{}, classifierErr(config.ProviderLexicon, TaskLanguage, ErrNoSignal)
	}
	code := strings.ToLower(lang.IsoCode639_1().String())
	return types.Classification{Label: code, Score: round2(detector.ComputeLanguageConfidence(text, lang))}, nil
}

// tokenize lowercases text and splits it into words, hashtags stripped of '#'.
// Emoji are kept as single tokens.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			cur.WriteRune(r)
		case unicode.Is(unicode.So, r):
			flush()
			tokens = append(tokens, string(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
