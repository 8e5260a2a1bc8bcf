package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossvenue/marketfinder/internal/adjudicator"
	"github.com/crossvenue/marketfinder/internal/domain/market"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

func samplePair(volA, volB, spread float64, closeDelta time.Duration) *pair.MarketPair {
	now := time.Now()
	p := &pair.MarketPair{
		BucketName: "crypto_bitcoin_price",
		A: &market.NormalizedMarket{
			Venue: "venue-a", ExternalID: "1", Volume: decimal.NewFromFloat(volA),
			CloseTime: now.Add(48 * time.Hour),
		},
		B: &market.NormalizedMarket{
			Venue: "venue-b", ExternalID: "2", Volume: decimal.NewFromFloat(volB),
			CloseTime: now.Add(48*time.Hour + closeDelta),
		},
	}
	p.YesA = decimal.NewFromFloat(0.40)
	p.YesB = p.YesA.Add(decimal.NewFromFloat(spread))
	p.PriceSpread = decimal.NewFromFloat(spread)
	return p
}

func TestClassify_SimpleOnLargeSpread(t *testing.T) {
	assert.Equal(t, TypeSimple, classify(0.10, time.Hour, decimal.NewFromInt(1000), decimal.NewFromInt(1000)))
}

func TestClassify_TemporalOnLongDelta(t *testing.T) {
	assert.Equal(t, TypeTemporal, classify(0.02, 48*time.Hour, decimal.NewFromInt(1000), decimal.NewFromInt(1000)))
}

func TestClassify_LiquidityOnImbalance(t *testing.T) {
	assert.Equal(t, TypeLiquidity, classify(0.02, time.Hour, decimal.NewFromInt(1000), decimal.NewFromInt(10000)))
}

func TestClassify_CrossPlatformOtherwise(t *testing.T) {
	assert.Equal(t, TypeCrossPlatform, classify(0.02, time.Hour, decimal.NewFromInt(1000), decimal.NewFromInt(1200)))
}

func TestBuildStrategy_BuysLowerPricedSide(t *testing.T) {
	p := samplePair(5000, 5000, 0.10, 0)
	s := buildStrategy(p)
	assert.Equal(t, "venue-a", s.BuyVenue)
	assert.Equal(t, "venue-b", s.SellVenue)
	assert.True(t, s.BuyPrice.LessThan(s.SellPrice))
}

func TestRiskLevel_Exceeds(t *testing.T) {
	assert.True(t, RiskHigh.Exceeds(RiskMedium))
	assert.False(t, RiskMedium.Exceeds(RiskHigh))
	assert.False(t, RiskMedium.Exceeds(RiskMedium))
}

func TestScore_EmitsPassingOpportunity(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	p := samplePair(8000, 7000, 0.30, 0)
	eval := &adjudicator.LLMEvaluation{Confidence: 0.85, SemanticSimilarity: 0.9}

	opp, passes := scorer.Score(p, eval, time.Now())
	require.NotNil(t, opp)
	assert.True(t, passes)
	assert.NotEmpty(t, opp.OpportunityID)
	assert.True(t, opp.Metrics.ExpectedProfitUSD.IsPositive())
	assert.Greater(t, opp.PriorityScore, 0.0)
}

func TestScore_RejectsWhenCostExceedsGrossProfit(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	p := samplePair(50, 50, 0.021, 0)

	opp, passes := scorer.Score(p, &adjudicator.LLMEvaluation{Confidence: 0.8, SemanticSimilarity: 0.9}, time.Now())
	assert.False(t, passes)
	assert.Nil(t, opp)
}

func TestScore_RejectsWhenRiskExceedsMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRiskLevel = RiskVeryLow
	scorer := NewScorer(cfg)
	p := samplePair(8000, 7000, 0.30, 0)

	_, passes := scorer.Score(p, &adjudicator.LLMEvaluation{Confidence: 0.85, SemanticSimilarity: 0.9}, time.Now())
	assert.False(t, passes)
}

func TestPositionSize_NeverExceedsConfiguredMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPositionUSD = 50
	scorer := NewScorer(cfg)
	position := scorer.positionSize(1_000_000, 1_000_000, 0.30)
	assert.True(t, position.LessThanOrEqual(decimal.NewFromFloat(50)))
}

func TestPositionSize_ZeroSpreadYieldsZeroPosition(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	position := scorer.positionSize(5000, 5000, 0)
	assert.True(t, position.IsZero())
}

func TestBandRisk_Thresholds(t *testing.T) {
	assert.Equal(t, RiskVeryLow, bandRisk(0.10))
	assert.Equal(t, RiskLow, bandRisk(0.20))
	assert.Equal(t, RiskMedium, bandRisk(0.40))
	assert.Equal(t, RiskHigh, bandRisk(0.60))
	assert.Equal(t, RiskVeryHigh, bandRisk(0.80))
}

func TestExecutionRiskForSpread_PenalizesBothTails(t *testing.T) {
	tight := executionRiskForSpread(0.01)
	ideal := executionRiskForSpread(0.08)
	wide := executionRiskForSpread(0.30)
	assert.Less(t, ideal, tight)
	assert.Less(t, ideal, wide)
}

func TestAnnualize_ZeroHoursReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, annualize(0.1, 0))
}

func TestPriorityScore_WeightedSum(t *testing.T) {
	got := priorityScore(0.25, 2.5, 0.2, 0.8)
	want := 0.4*0.5 + 0.3*0.5 + 0.2*0.8 + 0.1*0.8
	assert.InDelta(t, want, got, 1e-9)
}
