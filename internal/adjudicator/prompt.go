package adjudicator

import (
	"encoding/json"
	"fmt"

	"github.com/crossvenue/marketfinder/internal/domain/mlscore"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
)

// BuildPrompt renders the adjudication request for one pair (spec §4.E:
// "the prompt demands a JSON object with the fields of §3's
// LLMEvaluation").
func BuildPrompt(p *pair.MarketPair, pred mlscore.MLPrediction) string {
	return fmt.Sprintf(`Compare these two prediction-market listings and decide whether they
describe the same underlying event.

Market A (%s): %q, yes-price %s, volume %s, closes %s
Market B (%s): %q, yes-price %s, volume %s, closes %s

ML worthiness score: %.3f

Respond with a single JSON object with exactly these fields:
{
  "confidence": <0..1>,
  "semantic_similarity": <0..1>,
  "arbitrage_viability": <0..1>,
  "reasoning": "<short free text>",
  "recommended_action": "PROCEED" | "INVESTIGATE" | "REJECT"
}`,
		p.A.Venue, p.A.Title, p.YesA, p.A.Volume, p.A.CloseTime.Format("2006-01-02"),
		p.B.Venue, p.B.Title, p.YesB, p.B.Volume, p.B.CloseTime.Format("2006-01-02"),
		pred.LLMWorthiness,
	)
}

type rawResponse struct {
	Confidence         float64 `json:"confidence"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	ArbitrageViability float64 `json:"arbitrage_viability"`
	Reasoning          string  `json:"reasoning"`
	RecommendedAction  string  `json:"recommended_action"`
}

// parseResponse decodes the provider's raw text as the structured JSON
// object the prompt demands.
func parseResponse(raw string) (rawResponse, error) {
	var r rawResponse
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return rawResponse{}, fmt.Errorf("adjudicator: parse response: %w", err)
	}
	switch RecommendedAction(r.RecommendedAction) {
	case ActionProceed, ActionInvestigate, ActionReject:
	default:
		return rawResponse{}, fmt.Errorf("adjudicator: unrecognized recommended_action %q", r.RecommendedAction)
	}
	return r, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
