// Package filter implements the hierarchical filter (spec §4.C):
// five ordered, cheap, I/O-free predicates over one bucket's cross-venue
// market pairs.
package filter

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossvenue/marketfinder/internal/domain/bucket"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

// Config holds the funnel thresholds named in spec §6.
type Config struct {
	MinPrice            float64 // 0.05
	MaxPrice            float64 // 0.95
	MinVolume           float64 // 100
	MinSpreadStage1     float64 // 0.02
	MinTextSimilarity   float64 // 0.3
	SignificantSpread   float64 // 0.10 (hard-coded per spec §9 open question)
	MinLiquidityScore   float64 // 0.1
	VolumeRatioFloor    float64 // 0.1
	MaxTimeDeltaDays    int     // 30
	TimeAlignmentBoost  float64 // 0.2
	ArbitrageCostBuffer float64 // 0.01
	MinArbitragePotential float64 // 0.02
}

// DefaultConfig returns the thresholds from spec §4.C/§6.
func DefaultConfig() Config {
	return Config{
		MinPrice:              0.05,
		MaxPrice:              0.95,
		MinVolume:             100,
		MinSpreadStage1:       0.02,
		MinTextSimilarity:     0.3,
		SignificantSpread:     0.10,
		MinLiquidityScore:     0.1,
		VolumeRatioFloor:      0.1,
		MaxTimeDeltaDays:      30,
		TimeAlignmentBoost:    0.2,
		ArbitrageCostBuffer:   0.01,
		MinArbitragePotential: 0.02,
	}
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "will": {}, "be": {},
	"is": {}, "are": {},
}

// Filter runs the five ordered stages over one bucket pair and reports
// per-stage metrics (spec §4.C).
type Filter struct {
	cfg Config
}

func NewFilter(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

// Result is the per-bucket filter outcome: surviving pairs, preserving
// (venue-A index, venue-B index) enumeration order (spec §5 ordering
// guarantees), plus per-stage stats.
type Result struct {
	Pairs []*pair.MarketPair
	Stats []*StageStats
}

// Run applies all five stages in order to one bucket pair.
func (f *Filter) Run(bp bucket.Pair) Result {
	candidates := f.stage1BasicCompatibility(bp)
	var allStats []*StageStats
	allStats = append(allStats, candidates.stats)
	pairs := candidates.pairs

	s2 := f.stage2TextSimilarity(pairs)
	allStats = append(allStats, s2.stats)
	pairs = s2.pairs

	s3 := f.stage3Liquidity(pairs)
	allStats = append(allStats, s3.stats)
	pairs = s3.pairs

	s4 := f.stage4TimeAlignment(pairs)
	allStats = append(allStats, s4.stats)
	pairs = s4.pairs

	s5 := f.stage5ArbitragePotential(pairs)
	allStats = append(allStats, s5.stats)
	pairs = s5.pairs

	return Result{Pairs: pairs, Stats: allStats}
}

type stageOutput struct {
	pairs []*pair.MarketPair
	stats *StageStats
}

// stage1BasicCompatibility enriches with Yes-equivalent prices and
// rejects pairs whose price or volume or spread disqualify them
// (spec §4.C stage 1).
func (f *Filter) stage1BasicCompatibility(bp bucket.Pair) stageOutput {
	start := time.Now()
	total := len(bp.VenueAMarkets) * len(bp.VenueBMarkets)
	stats := newStats(StageBasicCompatibility, total)
	var out []*pair.MarketPair

	for _, a := range bp.VenueAMarkets {
		yesA := a.YesPrice()
		priceA, _ := yesA.Float64()
		volA, _ := a.Volume.Float64()

		if priceA < f.cfg.MinPrice || priceA > f.cfg.MaxPrice {
			stats.reject("price_out_of_range")
			continue
		}
		if volA < f.cfg.MinVolume {
			stats.reject("low_volume")
			continue
		}

		for _, b := range bp.VenueBMarkets {
			yesB := b.YesPrice()
			priceB, _ := yesB.Float64()
			volB, _ := b.Volume.Float64()

			if priceB < f.cfg.MinPrice || priceB > f.cfg.MaxPrice {
				stats.reject("price_out_of_range")
				continue
			}
			if volB < f.cfg.MinVolume {
				stats.reject("low_volume")
				continue
			}

			spread := yesA.Sub(yesB).Abs()
			spreadF, _ := spread.Float64()
			if spreadF < f.cfg.MinSpreadStage1 {
				stats.reject("insufficient_arbitrage")
				continue
			}

			out = append(out, &pair.MarketPair{
				BucketName:  bp.BucketName,
				A:           a,
				B:           b,
				YesA:        yesA,
				YesB:        yesB,
				PriceSpread: spread,
			})
		}
	}
	stats.finish(len(out), start)
	return stageOutput{pairs: out, stats: stats}
}

// stage2TextSimilarity keeps a pair if its title Jaccard similarity
// clears the threshold, or its spread is large enough to earn a
// semantic pass regardless (spec §4.C stage 2).
func (f *Filter) stage2TextSimilarity(pairs []*pair.MarketPair) stageOutput {
	start := time.Now()
	stats := newStats(StageTextSimilarity, len(pairs))
	var out []*pair.MarketPair

	for _, p := range pairs {
		sim := titleJaccard(p.A.Title, p.B.Title)
		p.TextSimilarity = sim

		spreadF, _ := p.PriceSpread.Float64()
		significantSpread := spreadF >= f.cfg.SignificantSpread

		if sim >= f.cfg.MinTextSimilarity || significantSpread {
			out = append(out, p)
		} else {
			stats.reject("low_text_similarity")
		}
	}
	stats.finish(len(out), start)
	return stageOutput{pairs: out, stats: stats}
}

func titleJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(title string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(title))
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

// perSideLiquidityScore implements spec §4.C stage 3:
// log10(volume * (1 - 2|price - 0.5|) + 1) / 4, clamped to [0,1].
func perSideLiquidityScore(volume, price float64) float64 {
	priceAdjustment := 1.0 - math.Abs(price-0.5)*2
	if priceAdjustment < 0 {
		priceAdjustment = 0
	}
	adjustedVolume := volume * priceAdjustment
	if adjustedVolume <= 0 {
		return 0
	}
	score := math.Log10(adjustedVolume+1) / 4.0
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// stage3Liquidity rejects pairs whose mean liquidity score is too low
// or whose volumes are too imbalanced for practical execution
// (spec §4.C stage 3).
func (f *Filter) stage3Liquidity(pairs []*pair.MarketPair) stageOutput {
	start := time.Now()
	stats := newStats(StageLiquidity, len(pairs))
	var out []*pair.MarketPair

	for _, p := range pairs {
		volA, _ := p.A.Volume.Float64()
		volB, _ := p.B.Volume.Float64()
		priceA, _ := p.YesA.Float64()
		priceB, _ := p.YesB.Float64()

		scoreA := perSideLiquidityScore(volA, priceA)
		scoreB := perSideLiquidityScore(volB, priceB)
		mean := (scoreA + scoreB) / 2

		minVol, maxVol := volA, volB
		if maxVol < minVol {
			minVol, maxVol = maxVol, minVol
		}
		ratio := 0.0
		if maxVol > 0 {
			ratio = minVol / maxVol
		}

		if mean < f.cfg.MinLiquidityScore {
			stats.reject("low_liquidity")
			continue
		}
		if ratio < f.cfg.VolumeRatioFloor {
			stats.reject("volume_imbalance")
			continue
		}

		p.LiquidityScore = mean
		out = append(out, p)
	}
	stats.finish(len(out), start)
	return stageOutput{pairs: out, stats: stats}
}

// stage4TimeAlignment rejects pairs whose close times diverge by more
// than the configured window, and scores the rest (spec §4.C stage 4).
func (f *Filter) stage4TimeAlignment(pairs []*pair.MarketPair) stageOutput {
	start := time.Now()
	stats := newStats(StageTimeAlignment, len(pairs))
	var out []*pair.MarketPair

	maxDelta := time.Duration(f.cfg.MaxTimeDeltaDays) * 24 * time.Hour

	for _, p := range pairs {
		delta := p.CloseTimeDelta()
		if delta > maxDelta {
			stats.reject("time_misaligned")
			continue
		}

		score := 1.0 - delta.Seconds()/maxDelta.Seconds()
		if delta <= 24*time.Hour {
			score += f.cfg.TimeAlignmentBoost
		}
		if score > 1 {
			score = 1
		}
		p.TimeAlignmentScore = score
		out = append(out, p)
	}
	stats.finish(len(out), start)
	return stageOutput{pairs: out, stats: stats}
}

// stage5ArbitragePotential rejects pairs whose residual spread (after
// an assumed cost buffer) is too small to be worth pursuing
// (spec §4.C stage 5).
func (f *Filter) stage5ArbitragePotential(pairs []*pair.MarketPair) stageOutput {
	start := time.Now()
	stats := newStats(StageArbitragePotential, len(pairs))
	var out []*pair.MarketPair

	costBuffer := decimal.NewFromFloat(f.cfg.ArbitrageCostBuffer)
	minPotential := decimal.NewFromFloat(f.cfg.MinArbitragePotential)

	for _, p := range pairs {
		potential := p.PriceSpread.Sub(costBuffer)
		if potential.IsNegative() {
			potential = decimal.Zero
		}
		if potential.LessThan(minPotential) {
			stats.reject("insufficient_arbitrage_potential")
			continue
		}
		p.ArbitragePotential = potential
		out = append(out, p)
	}
	stats.finish(len(out), start)
	return stageOutput{pairs: out, stats: stats}
}
