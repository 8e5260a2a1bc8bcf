// Package arbitrage implements the arbitrage scorer (spec §4.F): turns
// an accepted LLM evaluation into a ranked, costed, risk-banded
// opportunity.
package arbitrage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type classifies how the opportunity arises (spec §4.F decision tree).
type Type string

const (
	TypeSimple        Type = "SIMPLE"
	TypeTemporal      Type = "TEMPORAL"
	TypeLiquidity     Type = "LIQUIDITY"
	TypeCrossPlatform Type = "CROSS_PLATFORM"
)

// RiskLevel is the banded overall-risk label (spec §3).
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// riskLevelOrder gives RiskLevel a total order for max_risk_level
// gating (spec §8 property 5).
var riskLevelOrder = map[RiskLevel]int{
	RiskVeryLow:  0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskVeryHigh: 4,
}

// Exceeds reports whether r is strictly riskier than max.
func (r RiskLevel) Exceeds(max RiskLevel) bool {
	return riskLevelOrder[r] > riskLevelOrder[max]
}

// Strategy records which side to buy/sell at which price (spec §3).
type Strategy struct {
	BuyVenue   string
	BuyPrice   decimal.Decimal
	SellVenue  string
	SellPrice  decimal.Decimal
}

// TransactionCostAnalysis is the cost model output (spec §4.F).
type TransactionCostAnalysis struct {
	FeeUSD       decimal.Decimal
	GasUSD       decimal.Decimal
	SlippageUSD  decimal.Decimal
	TotalUSD     decimal.Decimal
	CostPercentage float64
}

// RiskAssessment is the five-factor weighted risk model (spec §4.F).
type RiskAssessment struct {
	LiquidityRisk   float64
	TimingRisk      float64
	ExecutionRisk   float64
	CorrelationRisk float64
	PlatformRisk    float64
	OverallRisk     float64
	RiskLevel       RiskLevel
}

// Metrics is the profitability summary (spec §3).
type Metrics struct {
	ExpectedProfitUSD        decimal.Decimal
	ExpectedProfitPercentage float64
	AnnualizedROI            float64
	SuccessProbability       float64
	ExecutionTimeEstimate    time.Duration
}

// Opportunity is the stage-F output (spec §3).
type Opportunity struct {
	OpportunityID   string
	MarketAID       string
	MarketBID       string
	BucketName      string
	ArbitrageType   Type
	Strategy        Strategy
	PositionSize    decimal.Decimal
	Cost            TransactionCostAnalysis
	Risk            RiskAssessment
	Metrics         Metrics
	PriorityScore   float64
	DetectedAt      time.Time
	ExpiresAt       time.Time
}

// NewOpportunityID returns a fresh opaque opportunity id (spec §3:
// "opaque opportunity_id").
func NewOpportunityID() string {
	return uuid.NewString()
}
