package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossvenue/marketfinder/internal/adjudicator"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

// Config holds stage-F tuning (spec §4.F, §6).
type Config struct {
	FeePercentage     float64 // per-venue fee, applied to position size
	FixedGasUSD       float64
	SlippageCoefficient float64 // scales position/venue_volume
	MaxPositionUSD    float64 // config max-position cap, e.g. $10k
	KellyWinRate      float64 // assumed win rate p, default 0.8
	MaxKellyFraction  float64 // cap on the Kelly fraction, default 0.25
	MaxExecutionHours float64
	MinProfitPct      float64   // min_profit_pct, default 0.02
	MaxRiskLevel      RiskLevel // max_risk_level
}

func DefaultConfig() Config {
	return Config{
		FeePercentage:       0.01,
		FixedGasUSD:         1.0,
		SlippageCoefficient: 0.5,
		MaxPositionUSD:      10000,
		KellyWinRate:        0.8,
		MaxKellyFraction:    0.25,
		MaxExecutionHours:   72,
		MinProfitPct:        0.02,
		MaxRiskLevel:        RiskMedium,
	}
}

// Scorer synthesizes an Opportunity from an accepted pair + evaluation.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score implements spec §4.F end to end. The second return reports
// whether the opportunity clears both the profit and risk gates and
// should be emitted.
func (s *Scorer) Score(p *pair.MarketPair, eval *adjudicator.LLMEvaluation, now time.Time) (*Opportunity, bool) {
	spread, _ := p.PriceSpread.Float64()
	arbType := classify(spread, p.CloseTimeDelta(), p.A.Volume, p.B.Volume)

	strategy := buildStrategy(p)

	volA, _ := p.A.Volume.Float64()
	volB, _ := p.B.Volume.Float64()
	position := s.positionSize(volA, volB, spread)

	cost := s.costModel(position, volA, volB)

	grossProfit := position.Mul(decimal.NewFromFloat(spread))
	if grossProfit.LessThanOrEqual(cost.TotalUSD) {
		return nil, false
	}
	netProfit := grossProfit.Sub(cost.TotalUSD)

	netProfitF, _ := netProfit.Float64()
	positionF, _ := position.Float64()
	profitPct := 0.0
	if positionF > 0 {
		profitPct = netProfitF / positionF
	}

	risk := s.riskModel(volA, volB, p.CloseTimeDelta(), spread, eval.SemanticSimilarity)

	expiry := earliestExpiry(p.A.CloseTime, p.B.CloseTime, now.Add(time.Duration(s.cfg.MaxExecutionHours*float64(time.Hour))))
	hoursToExpiry := expiry.Sub(now).Hours()
	annualizedROI := annualize(profitPct, hoursToExpiry)

	metrics := Metrics{
		ExpectedProfitUSD:        netProfit,
		ExpectedProfitPercentage: profitPct,
		AnnualizedROI:            annualizedROI,
		SuccessProbability:       1 - risk.OverallRisk,
		ExecutionTimeEstimate:    15 * time.Minute,
	}

	priority := priorityScore(profitPct, annualizedROI, risk.OverallRisk, eval.Confidence)

	opp := &Opportunity{
		OpportunityID: NewOpportunityID(),
		MarketAID:     p.A.Key(),
		MarketBID:     p.B.Key(),
		BucketName:    p.BucketName,
		ArbitrageType: arbType,
		Strategy:      strategy,
		PositionSize:  position,
		Cost:          cost,
		Risk:          risk,
		Metrics:       metrics,
		PriorityScore: priority,
		DetectedAt:    now,
		ExpiresAt:     expiry,
	}

	passes := profitPct >= s.cfg.MinProfitPct && !risk.RiskLevel.Exceeds(s.cfg.MaxRiskLevel)
	return opp, passes
}

// classify implements spec §4.F's decision tree.
func classify(spread float64, closeDelta time.Duration, volA, volB decimal.Decimal) Type {
	if spread >= 0.05 {
		return TypeSimple
	}
	if closeDelta > 24*time.Hour {
		return TypeTemporal
	}
	a, _ := volA.Float64()
	b, _ := volB.Float64()
	min, max := a, b
	if max < min {
		min, max = max, min
	}
	ratio := 0.0
	if max > 0 {
		ratio = min / max
	}
	if ratio < 0.3 {
		return TypeLiquidity
	}
	return TypeCrossPlatform
}

// buildStrategy buys on the lower-priced side, sells on the higher
// (spec §4.F).
func buildStrategy(p *pair.MarketPair) Strategy {
	if p.YesA.LessThanOrEqual(p.YesB) {
		return Strategy{
			BuyVenue:  string(p.A.Venue),
			BuyPrice:  p.YesA,
			SellVenue: string(p.B.Venue),
			SellPrice: p.YesB,
		}
	}
	return Strategy{
		BuyVenue:  string(p.B.Venue),
		BuyPrice:  p.YesB,
		SellVenue: string(p.A.Venue),
		SellPrice: p.YesA,
	}
}

// positionSize is the minimum of the liquidity, config-max, and
// Kelly-fraction caps (spec §4.F).
func (s *Scorer) positionSize(volA, volB, spread float64) decimal.Decimal {
	minVol := volA
	if volB < minVol {
		minVol = volB
	}
	liquidityCap := minVol * 0.2

	kellyFraction := 0.0
	if spread > 0 {
		p := s.cfg.KellyWinRate
		kellyFraction = (p*spread - (1 - p)) / spread
	}
	if kellyFraction < 0 {
		kellyFraction = 0
	}
	if kellyFraction > s.cfg.MaxKellyFraction {
		kellyFraction = s.cfg.MaxKellyFraction
	}
	kellyCap := liquidityCap * kellyFraction
	if kellyFraction == 0 {
		kellyCap = 0
	}

	position := minOf(liquidityCap, s.cfg.MaxPositionUSD, kellyCap)
	if position < 0 {
		position = 0
	}
	return decimal.NewFromFloat(position)
}

func minOf(values ...float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// costModel sums per-venue fee, fixed gas, and volume-scaled slippage
// (spec §4.F).
func (s *Scorer) costModel(position decimal.Decimal, volA, volB float64) TransactionCostAnalysis {
	positionF, _ := position.Float64()

	fee := decimal.NewFromFloat(positionF * s.cfg.FeePercentage)
	gas := decimal.NewFromFloat(s.cfg.FixedGasUSD)

	avgVolume := (volA + volB) / 2
	slippagePct := 0.0
	if avgVolume > 0 {
		slippagePct = s.cfg.SlippageCoefficient * (positionF / avgVolume)
	}
	slippage := decimal.NewFromFloat(positionF * slippagePct)

	total := fee.Add(gas).Add(slippage)
	totalF, _ := total.Float64()
	costPct := 0.0
	if positionF > 0 {
		costPct = totalF / positionF
	}

	return TransactionCostAnalysis{
		FeeUSD:         fee,
		GasUSD:         gas,
		SlippageUSD:    slippage,
		TotalUSD:       total,
		CostPercentage: costPct,
	}
}

// riskModel implements the five-factor weighted model and its banding
// (spec §4.F).
func (s *Scorer) riskModel(volA, volB float64, closeDelta time.Duration, spread, semanticSimilarity float64) RiskAssessment {
	minVol := volA
	if volB < minVol {
		minVol = volB
	}
	liquidityRisk := tierLiquidityRisk(minVol)
	timingRisk := tierTimingRisk(closeDelta.Hours())
	executionRisk := executionRiskForSpread(spread)
	correlationRisk := 1 - semanticSimilarity
	platformRisk := 0.1

	overall := 0.30*liquidityRisk + 0.25*timingRisk + 0.20*executionRisk + 0.15*correlationRisk + 0.10*platformRisk

	return RiskAssessment{
		LiquidityRisk:   liquidityRisk,
		TimingRisk:      timingRisk,
		ExecutionRisk:   executionRisk,
		CorrelationRisk: correlationRisk,
		PlatformRisk:    platformRisk,
		OverallRisk:     overall,
		RiskLevel:       bandRisk(overall),
	}
}

func tierLiquidityRisk(minVolume float64) float64 {
	switch {
	case minVolume >= 10000:
		return 0.1
	case minVolume >= 5000:
		return 0.25
	case minVolume >= 1000:
		return 0.5
	case minVolume >= 100:
		return 0.75
	default:
		return 1.0
	}
}

func tierTimingRisk(hoursDelta float64) float64 {
	switch {
	case hoursDelta <= 1:
		return 0.1
	case hoursDelta <= 24:
		return 0.3
	case hoursDelta <= 168:
		return 0.5
	case hoursDelta <= 720:
		return 0.75
	default:
		return 1.0
	}
}

// executionRiskForSpread penalizes both too-tight and too-wide spreads
// (spec §4.F: "both too-tight and too-wide are risky").
func executionRiskForSpread(spread float64) float64 {
	const ideal = 0.08
	distance := spread - ideal
	if distance < 0 {
		distance = -distance
	}
	risk := distance / ideal
	if risk > 1 {
		risk = 1
	}
	return risk
}

func bandRisk(overall float64) RiskLevel {
	switch {
	case overall < 0.15:
		return RiskVeryLow
	case overall < 0.30:
		return RiskLow
	case overall < 0.50:
		return RiskMedium
	case overall < 0.70:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

func earliestExpiry(closeA, closeB, executionDeadline time.Time) time.Time {
	earliest := closeA
	if closeB.Before(earliest) {
		earliest = closeB
	}
	if executionDeadline.Before(earliest) {
		return executionDeadline
	}
	return earliest
}

func annualize(profitPct, hoursToExpiry float64) float64 {
	if hoursToExpiry <= 0 {
		return 0
	}
	periodsPerYear := (365 * 24) / hoursToExpiry
	return profitPct * periodsPerYear
}

// priorityScore combines normalized profit%, annualized ROI, (1 -
// risk), and confidence with weights (0.4, 0.3, 0.2, 0.1) (spec §4.F).
func priorityScore(profitPct, annualizedROI, overallRisk, confidence float64) float64 {
	normalizedProfit := clamp01(profitPct / 0.5) // 50% profit saturates the score
	normalizedROI := clamp01(annualizedROI / 5.0) // 500% annualized saturates the score
	return 0.4*normalizedProfit + 0.3*normalizedROI + 0.2*(1-overallRisk) + 0.1*confidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
