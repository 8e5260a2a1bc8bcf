// Package pair defines MarketPair, the stage-C/D/E working unit (spec
// §3). Each lazily-populated field's presence is a precondition for the
// funnel stage that follows it.
package pair

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

// MarketPair holds both sides of a candidate cross-venue match plus the
// fields each hierarchical-filter stage (component C) fills in, in
// order.
type MarketPair struct {
	BucketName string
	A          *market.NormalizedMarket
	B          *market.NormalizedMarket

	// YesA/YesB are the Yes-equivalent prices, enriched at filter stage 1.
	YesA decimal.Decimal
	YesB decimal.Decimal

	// PriceSpread is |YesA - YesB|, set at filter stage 1.
	PriceSpread decimal.Decimal

	// TextSimilarity is the title Jaccard score, set at filter stage 2.
	TextSimilarity float64

	// LiquidityScore is the mean per-side liquidity score, set at filter stage 3.
	LiquidityScore float64

	// TimeAlignmentScore is set at filter stage 4.
	TimeAlignmentScore float64

	// ArbitragePotential is max(0, spread - 0.01), set at filter stage 5.
	ArbitragePotential decimal.Decimal
}

// Fingerprint returns the pair-fingerprint hash used to key the LLM
// evaluation cache (spec §4.E, glossary): a content hash over both
// sides' venue ids and titles.
func (p *MarketPair) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(p.A.Key()))
	h.Write([]byte{0})
	h.Write([]byte(p.A.Title))
	h.Write([]byte{0})
	h.Write([]byte(p.B.Key()))
	h.Write([]byte{0})
	h.Write([]byte(p.B.Title))
	return hex.EncodeToString(h.Sum(nil))
}

// CloseTimeDelta returns the absolute duration between the two sides'
// close times.
func (p *MarketPair) CloseTimeDelta() time.Duration {
	d := p.A.CloseTime.Sub(p.B.CloseTime)
	if d < 0 {
		return -d
	}
	return d
}

// BothCloseWithin24h reports whether both sides close within 24h of now.
func (p *MarketPair) BothCloseWithin24h(now time.Time) bool {
	return p.A.CloseTime.Sub(now).Abs() <= 24*time.Hour && p.B.CloseTime.Sub(now).Abs() <= 24*time.Hour
}
