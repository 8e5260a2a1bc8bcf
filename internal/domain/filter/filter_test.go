package filter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossvenue/marketfinder/internal/domain/bucket"
	"github.com/crossvenue/marketfinder/internal/domain/market"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

func newTestMarket(venue market.Venue, id, title string, yesPrice, volume float64, closeTime time.Time) *market.NormalizedMarket {
	return &market.NormalizedMarket{
		Venue:      venue,
		ExternalID: id,
		Title:      title,
		Outcomes: []market.Outcome{
			{Name: "Yes", Price: decimal.NewFromFloat(yesPrice)},
			{Name: "No", Price: decimal.NewFromFloat(1 - yesPrice)},
		},
		Volume:    decimal.NewFromFloat(volume),
		CloseTime: closeTime,
	}
}

func newTestPair(a, b *market.NormalizedMarket) *pair.MarketPair {
	p := &pair.MarketPair{BucketName: "b", A: a, B: b}
	p.YesA = a.YesPrice()
	p.YesB = b.YesPrice()
	p.PriceSpread = p.YesA.Sub(p.YesB).Abs()
	return p
}

func TestFilterRun_OrdersStagesAndPreservesSurvivor(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()

	bp := bucket.Pair{
		BucketName: "crypto_bitcoin_price",
		VenueAMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-a", "1", "Will Bitcoin hit 100k by March", 0.60, 5000, now.Add(48*time.Hour)),
		},
		VenueBMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-b", "1", "Bitcoin above 100000 by March", 0.45, 5000, now.Add(48*time.Hour)),
		},
	}

	result := f.Run(bp)
	require.Len(t, result.Pairs, 1)
	require.Len(t, result.Stats, 5)

	stageNames := []StageName{
		StageBasicCompatibility, StageTextSimilarity, StageLiquidity,
		StageTimeAlignment, StageArbitragePotential,
	}
	for i, stat := range result.Stats {
		assert.Equal(t, stageNames[i], stat.Stage)
	}

	p := result.Pairs[0]
	assert.True(t, p.PriceSpread.Equal(decimal.NewFromFloat(0.15)))
	assert.Greater(t, p.TextSimilarity, 0.0)
	assert.Greater(t, p.LiquidityScore, 0.0)
	assert.Greater(t, p.TimeAlignmentScore, 0.0)
	assert.True(t, p.ArbitragePotential.GreaterThan(decimal.Zero))
}

func TestStage1_RejectsOutOfRangePrice(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	bp := bucket.Pair{
		BucketName: "b",
		VenueAMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-a", "1", "a", 0.99, 5000, now),
		},
		VenueBMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-b", "1", "a", 0.50, 5000, now),
		},
	}
	out := f.stage1BasicCompatibility(bp)
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["price_out_of_range"])
}

func TestStage1_RejectsLowVolume(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	bp := bucket.Pair{
		BucketName: "b",
		VenueAMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-a", "1", "a", 0.5, 10, now),
		},
		VenueBMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-b", "1", "a", 0.3, 5000, now),
		},
	}
	out := f.stage1BasicCompatibility(bp)
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["low_volume"])
}

func TestStage1_RejectsInsufficientSpread(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	bp := bucket.Pair{
		BucketName: "b",
		VenueAMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-a", "1", "a", 0.50, 5000, now),
		},
		VenueBMarkets: []*market.NormalizedMarket{
			newTestMarket("venue-b", "1", "a", 0.505, 5000, now),
		},
	}
	out := f.stage1BasicCompatibility(bp)
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["insufficient_arbitrage"])
}

func TestStage2_SignificantSpreadBypassesTextSimilarity(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	a := newTestMarket("venue-a", "1", "Zebra finch population count", 0.70, 5000, now)
	b := newTestMarket("venue-b", "1", "Quantum gravity wave detection", 0.30, 5000, now)
	p := newTestPair(a, b)

	out := f.stage2TextSimilarity([]*pair.MarketPair{p})
	require.Len(t, out.pairs, 1)
	assert.Equal(t, 0.0, out.pairs[0].TextSimilarity)
}

func TestStage2_RejectsLowSimilarityAndSmallSpread(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	a := newTestMarket("venue-a", "1", "Zebra finch population count", 0.52, 5000, now)
	b := newTestMarket("venue-b", "1", "Quantum gravity wave detection", 0.50, 5000, now)
	p := newTestPair(a, b)

	out := f.stage2TextSimilarity([]*pair.MarketPair{p})
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["low_text_similarity"])
}

func TestStage3_RejectsVolumeImbalance(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	a := newTestMarket("venue-a", "1", "a", 0.5, 100000, now)
	b := newTestMarket("venue-b", "1", "a", 0.5, 10, now)
	p := newTestPair(a, b)

	out := f.stage3Liquidity([]*pair.MarketPair{p})
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["volume_imbalance"])
}

func TestStage3_RejectsLowLiquidity(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	a := newTestMarket("venue-a", "1", "a", 0.06, 1, now)
	b := newTestMarket("venue-b", "1", "a", 0.06, 1, now)
	p := newTestPair(a, b)

	out := f.stage3Liquidity([]*pair.MarketPair{p})
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["low_liquidity"])
}

func TestStage4_RejectsTimeMisalignment(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	a := newTestMarket("venue-a", "1", "a", 0.5, 5000, now)
	b := newTestMarket("venue-b", "1", "a", 0.5, 5000, now.Add(60*24*time.Hour))
	p := newTestPair(a, b)

	out := f.stage4TimeAlignment([]*pair.MarketPair{p})
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["time_misaligned"])
}

func TestStage4_BoostsScoreForCloseAlignment(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	a := newTestMarket("venue-a", "1", "a", 0.5, 5000, now)
	b := newTestMarket("venue-b", "1", "a", 0.5, 5000, now.Add(6*time.Hour))
	p := newTestPair(a, b)

	out := f.stage4TimeAlignment([]*pair.MarketPair{p})
	require.Len(t, out.pairs, 1)
	assert.Greater(t, out.pairs[0].TimeAlignmentScore, 0.9)
}

func TestStage5_RejectsBelowCostBuffer(t *testing.T) {
	f := NewFilter(DefaultConfig())
	now := time.Now()
	a := newTestMarket("venue-a", "1", "a", 0.50, 5000, now)
	b := newTestMarket("venue-b", "1", "a", 0.515, 5000, now)
	p := newTestPair(a, b)

	out := f.stage5ArbitragePotential([]*pair.MarketPair{p})
	assert.Empty(t, out.pairs)
	assert.Equal(t, 1, out.stats.RejectionReasons["insufficient_arbitrage_potential"])
}
