// Package matching pairs brands with influencers whose audience fits the brand's
// target audience and suggests a price range for each pairing.
package matching

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ibeckermayer/influencescope/internal/types"
)

// Audience keys
const (
	KeyAge      = "age"
	KeyGender   = "gender"
	KeyLocation = "location"
)

// Brand is a brand looking for influencer partnerships
type Brand struct {
	Name           string            `toml:"name"`
	Industry       string            `toml:"industry"`
	TargetAudience map[string]string `toml:"target_audience"`
	ProductCost    float64           `toml:"product_cost"`
	ROIExpectation float64           `toml:"roi_expectation"` // percent, 20 means 20%
}

// Influencer is an influencer available for partnerships
type Influencer struct {
	Name          string
	ContentType   string
	AudienceStats map[string]string
	AverageReach  int // people reached per post
}

// Pricing is a suggested price range for one brand/influencer pair
type Pricing struct {
	MinPrice         float64 `json:"min_price"`
	MaxPrice         float64 `json:"max_price"`
	RecommendedPrice float64 `json:"recommended_price"`
}

// BrandMatches lists the influencers matched to a brand
type BrandMatches struct {
	Brand       Brand
	Influencers []Influencer
}

// Offer is a matched influencer together with the suggested pricing
type Offer struct {
	Influencer Influencer
	Pricing    Pricing
}

// BrandOffers lists the priced matches of a brand
type BrandOffers struct {
	Brand  Brand
	Offers []Offer
}

// Matches reports whether inf's audience fits b. Every target key must be present
// in the influencer's stats with an equal value, and the locations must agree.
func Matches(b Brand, inf Influencer) bool {
	for k, want := range b.TargetAudience {
		got, ok := inf.AudienceStats[k]
		if !ok || got != want {
			return false
		}
	}
	return inf.AudienceStats[KeyLocation] == b.TargetAudience[KeyLocation]
}

// Match pairs every brand with the influencers that fit it. Brand and influencer
// order is preserved.
func Match(brands []Brand, influencers []Influencer) []BrandMatches {
	out := make([]BrandMatches, 0, len(brands))
	for _, b := range brands {
		bm := BrandMatches{Brand: b, Influencers: []Influencer{}}
		for _, inf := range influencers {
			if Matches(b, inf) {
				bm.Influencers = append(bm.Influencers, inf)
			}
		}
		out = append(out, bm)
	}
	return out
}

// Price suggests a price range for a partnership. The minimum assumes 5%
// engagement and 1% conversion, the maximum 15% engagement and 3% conversion,
// each applied to the product cost grossed up by the brand's ROI expectation.
func Price(b Brand, inf Influencer) Pricing {
	unit := b.ProductCost * (1 + b.ROIExpectation/100)
	reach := float64(inf.AverageReach)
	minPrice := 0.05 * reach * 0.01 * unit
	maxPrice := 0.15 * reach * 0.03 * unit
	return Pricing{
		MinPrice:         round2(minPrice),
		MaxPrice:         round2(maxPrice),
		RecommendedPrice: round2((minPrice + maxPrice) / 2),
	}
}

// MatchWithPricing matches brands to influencers and prices every pairing
func MatchWithPricing(brands []Brand, influencers []Influencer) []BrandOffers {
	matches := Match(brands, influencers)
	out := make([]BrandOffers, 0, len(matches))
	for _, m := range matches {
		bo := BrandOffers{Brand: m.Brand, Offers: make([]Offer, 0, len(m.Influencers))}
		for _, inf := range m.Influencers {
			bo.Offers = append(bo.Offers, Offer{Influencer: inf, Pricing: Price(m.Brand, inf)})
		}
		out = append(out, bo)
	}
	return out
}

type brandsFile struct {
	Brands []Brand `toml:"brand"`
}

// LoadBrands reads [[brand]] tables from a TOML file
func LoadBrands(path string) ([]Brand, error) {
	var f brandsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to parse brands file: %w", err)
	}
	for i, b := range f.Brands {
		if strings.TrimSpace(b.Name) == "" {
			return nil, fmt.Errorf("brand #%d: name is required", i+1)
		}
		if b.ProductCost < 0 {
			return nil, fmt.Errorf("brand %s: product_cost must be >= 0", b.Name)
		}
		if b.TargetAudience == nil {
			f.Brands[i].TargetAudience = map[string]string{}
		}
	}
	if len(f.Brands) == 0 {
		return nil, errors.New("brands file defines no [[brand]] entries")
	}
	return f.Brands, nil
}

// InfluencerFromAnalysis derives a matching candidate from a persisted analysis.
// Content type is the most frequent category, location the demographic location or
// else the most frequent post location, and reach is followers times the
// engagement rate.
func InfluencerFromAnalysis(a *types.AnalysisRecord) Influencer {
	stats := map[string]string{}
	d := a.Demographics
	if d.EstimatedAge != nil {
		stats[KeyAge] = AgeBracket(*d.EstimatedAge)
	}
	if d.Gender != nil && *d.Gender != "" {
		stats[KeyGender] = strings.ToLower(*d.Gender)
	}
	if d.Location != nil && *d.Location != "" {
		stats[KeyLocation] = *d.Location
	} else if loc := topKey(a.GeographicReach); loc != "" {
		stats[KeyLocation] = loc
	}

	return Influencer{
		Name:          a.Username,
		ContentType:   topKey(a.ContentAnalysis.Categories),
		AudienceStats: stats,
		AverageReach:  int(math.Round(float64(a.BasicMetrics.Followers) * a.BasicMetrics.EngagementRate / 100)),
	}
}

// AgeBracket maps an age onto the brackets used in brand target audiences
func AgeBracket(age float64) string {
	switch {
	case age < 18:
		return "13-17"
	case age < 25:
		return "18-24"
	case age < 35:
		return "25-34"
	case age < 45:
		return "35-44"
	case age < 55:
		return "45-54"
	default:
		return "55+"
	}
}

// topKey returns the key with the highest count, ties broken alphabetically
func topKey(m map[string]int) string {
	best := ""
	for k, v := range m {
		if best == "" || v > m[best] || (v == m[best] && k < best) {
			best = k
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
