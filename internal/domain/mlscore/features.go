// Package mlscore implements the ML worthiness scorer (spec §4.D): a
// fixed feature vector over a filtered pair, scored by a pluggable
// classifier with a deterministic heuristic fallback.
package mlscore

import (
	"math"
	"strings"
	"time"

	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

// FeatureCount is the length of the vector a classifier artifact must
// declare compatibility with (spec §3: "ordering is part of the model
// contract — never reorder without retraining").
const FeatureCount = 11

// MLFeatures is the fixed-length, stably-ordered feature vector (spec §3).
type MLFeatures struct {
	JaccardSimilarity        float64
	CosineSimilarity         float64
	KeywordOverlapCount      float64
	PriceDifference          float64
	VolumeRatio              float64
	CategoryMatch            float64 // 1.0 / 0.0
	CloseTimeDifferenceHours float64
	BothClosingSoon          float64 // 1.0 / 0.0
	PerSideLiquidityScore    float64
	BucketHistoricalSuccess  float64
	SimilarPairConfidence    float64
}

// ToVector returns the features in the stable order the classifier
// contract depends on.
func (f MLFeatures) ToVector() []float64 {
	return []float64{
		f.JaccardSimilarity,
		f.CosineSimilarity,
		f.KeywordOverlapCount,
		f.PriceDifference,
		f.VolumeRatio,
		f.CategoryMatch,
		f.CloseTimeDifferenceHours,
		f.BothClosingSoon,
		f.PerSideLiquidityScore,
		f.BucketHistoricalSuccess,
		f.SimilarPairConfidence,
	}
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// BucketSuccessRates is a caller-supplied historical-feedback lookup
// keyed by bucket name; buckets with no entry use
// DefaultBucketSuccessRate. The Store collaborator has no method that
// produces it.
type BucketSuccessRates map[string]float64

// DefaultBucketSuccessRate is used when a bucket has no recorded history.
const DefaultBucketSuccessRate = 0.6

// DefaultSimilarPairConfidence is the SimilarPairConfidence feature
// value for every pair; Extract performs no historical similar-pair
// search.
const DefaultSimilarPairConfidence = 0.7

// Extractor computes MLFeatures for a filtered pair.
type Extractor struct {
	BucketSuccessRates BucketSuccessRates
}

func NewExtractor(rates BucketSuccessRates) *Extractor {
	if rates == nil {
		rates = BucketSuccessRates{}
	}
	return &Extractor{BucketSuccessRates: rates}
}

// Extract builds the feature vector for one pair (spec §4.D), reusing
// the text-similarity and liquidity fields the hierarchical filter
// already computed and deriving the rest.
func (e *Extractor) Extract(p *pair.MarketPair, now time.Time) MLFeatures {
	priceDiff, _ := p.PriceSpread.Float64()

	volA, _ := p.A.Volume.Float64()
	volB, _ := p.B.Volume.Float64()

	categoryMatch := 0.0
	if strings.EqualFold(string(p.A.Category), string(p.B.Category)) {
		categoryMatch = 1.0
	}

	bothSoon := 0.0
	if p.BothCloseWithin24h(now) {
		bothSoon = 1.0
	}

	successRate, ok := e.BucketSuccessRates[p.BucketName]
	if !ok {
		successRate = DefaultBucketSuccessRate
	}

	return MLFeatures{
		JaccardSimilarity:        p.TextSimilarity,
		CosineSimilarity:         cosineSimilarity(p.A.Title, p.B.Title),
		KeywordOverlapCount:      float64(keywordOverlapCount(p.A.Title, p.B.Title)),
		PriceDifference:          priceDiff,
		VolumeRatio:              volumeRatio(volA, volB),
		CategoryMatch:            categoryMatch,
		CloseTimeDifferenceHours: p.CloseTimeDelta().Hours(),
		BothClosingSoon:          bothSoon,
		PerSideLiquidityScore:    p.LiquidityScore,
		BucketHistoricalSuccess:  successRate,
		SimilarPairConfidence:    DefaultSimilarPairConfidence,
	}
}

func tokenize(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := map[string]struct{}{}
	for _, w := range words {
		w = strings.Trim(w, ".,!?:;\"'()")
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// cosineSimilarity is the bag-of-words cosine similarity over token
// sets: |intersection| / sqrt(|A| * |B|).
func cosineSimilarity(a, b string) float64 {
	setA := tokenize(a)
	setB := tokenize(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}
	return float64(intersection) / math.Sqrt(float64(len(setA))*float64(len(setB)))
}

func keywordOverlapCount(a, b string) int {
	setA := tokenize(a)
	setB := tokenize(b)
	count := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			count++
		}
	}
	return count
}

// volumeRatio is the smaller-to-larger volume ratio, in [0,1].
func volumeRatio(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	min, max := a, b
	if max < min {
		min, max = max, min
	}
	if max == 0 {
		return 0
	}
	return min / max
}
