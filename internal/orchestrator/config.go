package orchestrator

import "time"

// Config holds the orchestration-level knobs named in spec §6
// ("Orchestration": fail_on_stage_error, max_execution_hours,
// max_markets_per_venue) plus the concurrency knobs spec §5 requires
// for partitioning compute-bound stages.
type Config struct {
	// FailOnStageError aborts the whole run on a stage failure instead
	// of feeding downstream stages an empty input (spec §4.G, §7).
	FailOnStageError bool

	// MaxMarketsPerVenue caps how many raw markets are requested per
	// extraction call.
	MaxMarketsPerVenue int

	// MaxExecutionHours bounds an opportunity's expiry horizon (spec
	// §4.F); the orchestrator also uses it as the outermost run
	// deadline.
	MaxExecutionHours float64

	// NormalizeConcurrency bounds concurrent Normalize calls (spec §5:
	// "Compute-bound stages ... may be parallelized by partitioning
	// their input ... by market for A/B").
	NormalizeConcurrency int

	// BucketConcurrency bounds how many bucket-pairs are run through
	// the filter/ML/LLM/arbitrage funnel concurrently (spec §5: "by
	// bucket for C/D/F").
	BucketConcurrency int

	// StageDeadlines is the orchestrator-enforced soft deadline per
	// stage. A zero/absent entry means no deadline. Only the extract,
	// normalize, bucket and store entries are applied: each bounds the
	// context handed to that stage. The filter, ml_score, llm and
	// arbitrage stages run under the run context and their entries are
	// not read. An expired deadline does not set
	// StageMetric.DeadlineExceeded.
	StageDeadlines map[StageName]time.Duration
}

// DefaultConfig returns conservative defaults suitable for a
// single-process run over a few thousand markets per venue.
func DefaultConfig() Config {
	return Config{
		FailOnStageError:      false,
		MaxMarketsPerVenue:    5000,
		MaxExecutionHours:     72,
		NormalizeConcurrency:  8,
		BucketConcurrency:     4,
		StageDeadlines: map[StageName]time.Duration{
			StageExtract:   2 * time.Minute,
			StageNormalize: 2 * time.Minute,
			StageBucket:    30 * time.Second,
			StageFilter:    5 * time.Minute,
			StageMLScore:   5 * time.Minute,
			StageLLM:       30 * time.Minute,
			StageArbitrage: 2 * time.Minute,
			StageStore:     2 * time.Minute,
		},
	}
}

func (c Config) deadlineFor(stage StageName) time.Duration {
	if c.StageDeadlines == nil {
		return 0
	}
	return c.StageDeadlines[stage]
}
