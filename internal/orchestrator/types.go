// Package orchestrator implements the pipeline orchestrator (spec §4.G):
// it owns a single run, sequences the funnel stages, partitions
// compute-bound work across buckets with bounded concurrency, enforces
// soft deadlines on the extract, normalize, bucket and store stages,
// and translates stage panics into per-stage
// failure records instead of letting them cross a stage boundary.
package orchestrator

import (
	"time"

	"github.com/crossvenue/marketfinder/internal/domain/arbitrage"
)

// Status is the run's lifecycle state (spec §4.G state machine).
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// StageName identifies one of the pipeline's internal stage transitions.
type StageName string

const (
	StageExtract   StageName = "extract"
	StageNormalize StageName = "normalize"
	StageBucket    StageName = "bucket"
	StageFilter    StageName = "filter"
	StageMLScore   StageName = "ml_score"
	StageLLM       StageName = "llm"
	StageArbitrage StageName = "arbitrage"
	StageStore     StageName = "store"
)

// StageMetric is the per-stage outcome the orchestrator's contract to
// callers promises to preserve on every run, including partial/failed
// ones (spec §4.G, §7).
type StageMetric struct {
	Stage            StageName
	InputCount       int
	OutputCount      int
	Duration         time.Duration
	RejectionReasons map[string]int
	Failed           bool
	Err              string
	DeadlineExceeded bool
}

// Execution is the immutable-after-completion PipelineExecution record
// (spec §3, §4.G, §6).
type Execution struct {
	ExecutionID   string
	Status        Status
	StartedAt     time.Time
	FinishedAt    time.Time
	WallTime      time.Duration
	StageMetrics  []StageMetric
	Opportunities []*arbitrage.Opportunity
	Err           string
}

// StageMetricByName returns the recorded metric for a stage, or the
// zero value if the stage never ran (e.g. the run was cancelled before
// reaching it).
func (e *Execution) StageMetricByName(name StageName) (StageMetric, bool) {
	for _, m := range e.StageMetrics {
		if m.Stage == name {
			return m, true
		}
	}
	return StageMetric{}, false
}
