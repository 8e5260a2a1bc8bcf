// Package adjudicator implements the LLM semantic adjudicator (spec
// §4.E): rate-limited, budget-capped, cache-deduplicated external calls
// that turn a MarketPair + MLPrediction into an LLMEvaluation.
package adjudicator

import (
	"context"
	"time"
)

// RecommendedAction is the LLM's structured recommendation (spec §3).
type RecommendedAction string

const (
	ActionProceed     RecommendedAction = "PROCEED"
	ActionInvestigate RecommendedAction = "INVESTIGATE"
	ActionReject      RecommendedAction = "REJECT"
)

// LLMEvaluation is the stage-E output (spec §3).
type LLMEvaluation struct {
	PairFingerprint     string
	Confidence          float64
	SemanticSimilarity  float64
	ArbitrageViability  float64
	Reasoning           string
	RecommendedAction   RecommendedAction
	Provider            string
	ModelVersion        string
	EvaluatedAt         time.Time
	FromCache           bool
}

// Provider is the external LLM call collaborator. Implementations own
// the transport to the vendor; the adjudicator only depends on
// this interface (spec §6 treats the concrete provider as out of
// scope, same as Extractor/Store/Cache/Clock).
type Provider interface {
	// Name identifies the provider for LLMEvaluation.Provider/metrics.
	Name() string
	// ModelVersion identifies the specific model in use.
	ModelVersion() string
	// Evaluate sends prompt and returns the raw response text plus an
	// estimated USD cost. The Adjudicator does not read the returned
	// cost; its budget reserves Config.EstimatedCostPerCall per call.
	Evaluate(ctx context.Context, prompt string) (raw string, costUSD float64, err error)
}
