package mlscore

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossvenue/marketfinder/internal/domain/market"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

type fakeClassifier struct {
	version    string
	schemaLen  int
	prediction float64
	err        error
}

func (f *fakeClassifier) Version() string        { return f.version }
func (f *fakeClassifier) FeatureSchemaLen() int   { return f.schemaLen }
func (f *fakeClassifier) Predict(v []float64) (float64, error) {
	return f.prediction, f.err
}

func samplePair() *pair.MarketPair {
	now := time.Now()
	return &pair.MarketPair{
		BucketName: "crypto_bitcoin_price",
		A: &market.NormalizedMarket{
			Venue: "venue-a", ExternalID: "1", Title: "Will Bitcoin hit 100k",
			Category: market.CategoryCryptocurrency, Volume: decimal.NewFromFloat(1000),
			CloseTime: now.Add(48 * time.Hour),
		},
		B: &market.NormalizedMarket{
			Venue: "venue-b", ExternalID: "2", Title: "Bitcoin above 100000",
			Category: market.CategoryCryptocurrency, Volume: decimal.NewFromFloat(800),
			CloseTime: now.Add(48 * time.Hour),
		},
		PriceSpread:    decimal.NewFromFloat(0.08),
		TextSimilarity: 0.6,
		LiquidityScore: 0.5,
	}
}

func TestNewScorer_RejectsMismatchedFeatureSchema(t *testing.T) {
	classifier := &fakeClassifier{version: "v2", schemaLen: FeatureCount - 1}
	_, err := NewScorer(DefaultConfig(), classifier, NewExtractor(nil))
	require.Error(t, err)
}

func TestNewScorer_AcceptsNilClassifier(t *testing.T) {
	s, err := NewScorer(DefaultConfig(), nil, NewExtractor(nil))
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestScore_UsesClassifierWhenPresent(t *testing.T) {
	classifier := &fakeClassifier{version: "v2", schemaLen: FeatureCount, prediction: 0.75}
	s, err := NewScorer(DefaultConfig(), classifier, NewExtractor(nil))
	require.NoError(t, err)

	pred, err := s.Score(samplePair(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "v2", pred.ModelVersion)
	assert.Equal(t, 0.75, pred.LLMWorthiness)
	assert.InDelta(t, 0.85, pred.Confidence, 1e-9)
}

func TestScore_ClampsConfidenceAt09(t *testing.T) {
	classifier := &fakeClassifier{version: "v2", schemaLen: FeatureCount, prediction: 0.95}
	s, err := NewScorer(DefaultConfig(), classifier, NewExtractor(nil))
	require.NoError(t, err)

	pred, err := s.Score(samplePair(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.9, pred.Confidence)
}

func TestScore_PropagatesClassifierError(t *testing.T) {
	classifier := &fakeClassifier{version: "v2", schemaLen: FeatureCount, err: errors.New("boom")}
	s, err := NewScorer(DefaultConfig(), classifier, NewExtractor(nil))
	require.NoError(t, err)

	_, err = s.Score(samplePair(), time.Now())
	require.Error(t, err)
}

func TestScore_FallsBackToHeuristicWithNoClassifier(t *testing.T) {
	s, err := NewScorer(DefaultConfig(), nil, NewExtractor(nil))
	require.NoError(t, err)

	pred, err := s.Score(samplePair(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, HeuristicModelVersion, pred.ModelVersion)
	assert.Greater(t, pred.LLMWorthiness, 0.0)
}

func TestHeuristicScore_MatchesFormula(t *testing.T) {
	f := MLFeatures{JaccardSimilarity: 0.5, PriceDifference: 0.05, CategoryMatch: 1.0, VolumeRatio: 0.8}
	want := 0.4*0.5 + 0.3*0.5 + 0.2*1.0 + 0.1*0.8
	assert.InDelta(t, want, heuristicScore(f), 1e-9)
}

func TestHeuristicScore_ClampsSpreadTermAtOne(t *testing.T) {
	f := MLFeatures{JaccardSimilarity: 0, PriceDifference: 0.50, CategoryMatch: 0, VolumeRatio: 0}
	assert.InDelta(t, 0.3, heuristicScore(f), 1e-9)
}

func TestPasses_ComparesAgainstThreshold(t *testing.T) {
	s, err := NewScorer(Config{Threshold: 0.3}, nil, NewExtractor(nil))
	require.NoError(t, err)

	assert.True(t, s.Passes(MLPrediction{LLMWorthiness: 0.3}))
	assert.False(t, s.Passes(MLPrediction{LLMWorthiness: 0.29}))
}
