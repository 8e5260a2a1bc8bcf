// Package llmbudget adapts the teacher's daily-request-count budget
// Tracker into a per-batch USD-cost tracker for LLM adjudication (spec
// §4.E "bounded per-batch spend"): truncate the batch and record a
// truncation metric, never error out.
package llmbudget

import (
	"sync"
)

// Tracker enforces a maximum USD spend for one pipeline run's batch of
// LLM calls.
type Tracker struct {
	mu         sync.Mutex
	limitUSD   float64
	spentUSD   float64
	truncated  int
}

// NewTracker creates a tracker capped at limitUSD for the run.
func NewTracker(limitUSD float64) *Tracker {
	return &Tracker{limitUSD: limitUSD}
}

// Reserve asks permission to spend estimatedCostUSD on the next call.
// It returns false, recording a truncation, once the running total
// would exceed the limit — the caller must stop issuing further calls
// in this batch, not treat this as an error (spec §4.E).
func (t *Tracker) Reserve(estimatedCostUSD float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limitUSD > 0 && t.spentUSD+estimatedCostUSD > t.limitUSD {
		t.truncated++
		return false
	}
	t.spentUSD += estimatedCostUSD
	return true
}

// Spent returns the running USD total committed so far.
func (t *Tracker) Spent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spentUSD
}

// Truncated returns how many calls were skipped due to budget exhaustion.
func (t *Tracker) Truncated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.truncated
}
