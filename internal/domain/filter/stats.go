package filter

import "time"

// StageName identifies one of the five ordered hierarchical-filter
// predicates (spec §4.C).
type StageName string

const (
	StageBasicCompatibility StageName = "basic_compatibility"
	StageTextSimilarity     StageName = "text_similarity"
	StageLiquidity          StageName = "liquidity"
	StageTimeAlignment      StageName = "time_alignment"
	StageArbitragePotential StageName = "arbitrage_potential"
)

// StageStats records what one filter stage did to one bucket's pairs:
// input/output counts, duration, and a frequency table of rejection
// reasons (spec §4.C).
type StageStats struct {
	Stage            StageName
	InputCount       int
	OutputCount      int
	Duration         time.Duration
	RejectionReasons map[string]int
}

func newStats(stage StageName, input int) *StageStats {
	return &StageStats{Stage: stage, InputCount: input, RejectionReasons: map[string]int{}}
}

func (s *StageStats) reject(reason string) {
	s.RejectionReasons[reason]++
}

func (s *StageStats) finish(output int, start time.Time) {
	s.OutputCount = output
	s.Duration = time.Since(start)
}
