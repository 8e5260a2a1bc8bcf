package pair

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

func newPair(closeA, closeB time.Time) *MarketPair {
	return &MarketPair{
		BucketName: "crypto_bitcoin_price",
		A: &market.NormalizedMarket{
			Venue:      "venue-a",
			ExternalID: "1",
			Title:      "Will Bitcoin hit $100k?",
			CloseTime:  closeA,
		},
		B: &market.NormalizedMarket{
			Venue:      "venue-b",
			ExternalID: "2",
			Title:      "Bitcoin above 100000 by year end",
			CloseTime:  closeB,
		},
	}
}

func TestFingerprint_DeterministicForSameInputs(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p1 := newPair(now, now)
	p2 := newPair(now, now)

	assert.Equal(t, p1.Fingerprint(), p2.Fingerprint())
}

func TestFingerprint_ChangesWithTitle(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p1 := newPair(now, now)
	p2 := newPair(now, now)
	p2.B.Title = "A completely different market"

	assert.NotEqual(t, p1.Fingerprint(), p2.Fingerprint())
}

func TestFingerprint_IndependentOfMutableFilterFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p1 := newPair(now, now)
	p2 := newPair(now, now)
	p2.YesA = decimal.NewFromFloat(0.61)
	p2.PriceSpread = decimal.NewFromFloat(0.03)
	p2.TextSimilarity = 0.9

	assert.Equal(t, p1.Fingerprint(), p2.Fingerprint())
}

func TestCloseTimeDelta_IsAbsolute(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newPair(base, base.Add(6*time.Hour))
	assert.Equal(t, 6*time.Hour, p.CloseTimeDelta())

	p2 := newPair(base.Add(6*time.Hour), base)
	assert.Equal(t, 6*time.Hour, p2.CloseTimeDelta())
}

func TestBothCloseWithin24h(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	within := newPair(now.Add(2*time.Hour), now.Add(-3*time.Hour))
	assert.True(t, within.BothCloseWithin24h(now))

	notWithin := newPair(now.Add(2*time.Hour), now.Add(48*time.Hour))
	assert.False(t, notWithin.BothCloseWithin24h(now))
}
