package mlscore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/crossvenue/marketfinder/internal/domain/market"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

func newFeaturePair(catA, catB market.Category, closeA, closeB time.Time) *pair.MarketPair {
	return &pair.MarketPair{
		BucketName: "crypto_bitcoin_price",
		A: &market.NormalizedMarket{
			Venue: "venue-a", ExternalID: "1", Title: "Will Bitcoin hit 100k",
			Category: catA, Volume: decimal.NewFromFloat(1000), CloseTime: closeA,
		},
		B: &market.NormalizedMarket{
			Venue: "venue-b", ExternalID: "2", Title: "Bitcoin above 100000",
			Category: catB, Volume: decimal.NewFromFloat(500), CloseTime: closeB,
		},
		PriceSpread:    decimal.NewFromFloat(0.05),
		TextSimilarity: 0.5,
		LiquidityScore: 0.4,
	}
}

func TestToVector_PreservesFieldOrder(t *testing.T) {
	f := MLFeatures{
		JaccardSimilarity: 1, CosineSimilarity: 2, KeywordOverlapCount: 3,
		PriceDifference: 4, VolumeRatio: 5, CategoryMatch: 6,
		CloseTimeDifferenceHours: 7, BothClosingSoon: 8, PerSideLiquidityScore: 9,
		BucketHistoricalSuccess: 10, SimilarPairConfidence: 11,
	}
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, f.ToVector())
	assert.Len(t, f.ToVector(), FeatureCount)
}

func TestExtract_CategoryMatchAndVolumeRatio(t *testing.T) {
	now := time.Now()
	p := newFeaturePair(market.CategoryCryptocurrency, market.CategoryCryptocurrency, now.Add(72*time.Hour), now.Add(72*time.Hour))
	e := NewExtractor(nil)

	features := e.Extract(p, now)
	assert.Equal(t, 1.0, features.CategoryMatch)
	assert.Equal(t, 0.5, features.VolumeRatio)
	assert.Equal(t, DefaultBucketSuccessRate, features.BucketHistoricalSuccess)
	assert.Equal(t, DefaultSimilarPairConfidence, features.SimilarPairConfidence)
}

func TestExtract_CategoryMismatch(t *testing.T) {
	now := time.Now()
	p := newFeaturePair(market.CategoryCryptocurrency, market.CategoryPolitics, now.Add(72*time.Hour), now.Add(72*time.Hour))
	e := NewExtractor(nil)

	features := e.Extract(p, now)
	assert.Equal(t, 0.0, features.CategoryMatch)
}

func TestExtract_BothClosingSoon(t *testing.T) {
	now := time.Now()
	p := newFeaturePair(market.CategoryCryptocurrency, market.CategoryCryptocurrency, now.Add(2*time.Hour), now.Add(-1*time.Hour))
	e := NewExtractor(nil)

	features := e.Extract(p, now)
	assert.Equal(t, 1.0, features.BothClosingSoon)
}

func TestExtract_UsesHistoricalSuccessRateWhenPresent(t *testing.T) {
	now := time.Now()
	p := newFeaturePair(market.CategoryCryptocurrency, market.CategoryCryptocurrency, now, now)
	e := NewExtractor(BucketSuccessRates{"crypto_bitcoin_price": 0.85})

	features := e.Extract(p, now)
	assert.Equal(t, 0.85, features.BucketHistoricalSuccess)
}

func TestVolumeRatio_BothZeroIsZero(t *testing.T) {
	assert.Equal(t, 0.0, volumeRatio(0, 0))
}

func TestVolumeRatio_SmallerOverLarger(t *testing.T) {
	assert.Equal(t, 0.25, volumeRatio(100, 400))
	assert.Equal(t, 0.25, volumeRatio(400, 100))
}
