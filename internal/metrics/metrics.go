// Package metrics exposes the pipeline's Prometheus registry, modeled
// on the teacher's interfaces/http/metrics.go.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric the funnel stages and orchestrator
// publish.
type Registry struct {
	StageDuration *prometheus.HistogramVec
	StageInput    *prometheus.CounterVec
	StageOutput   *prometheus.CounterVec
	StageRejections *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	LLMCallsTotal     prometheus.Counter
	LLMBudgetTruncated prometheus.Counter
	LLMCircuitState   *prometheus.GaugeVec

	OpportunitiesEmitted prometheus.Counter
	PipelineRuns         *prometheus.CounterVec
	PipelineWallTime     prometheus.Histogram
}

// NewRegistry constructs every metric and returns a Registry ready to
// register against a prometheus.Registerer.
func NewRegistry() *Registry {
	return &Registry{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketfinder_stage_duration_seconds",
				Help:    "Duration of each funnel stage in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		StageInput: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfinder_stage_input_total",
				Help: "Total items entering each funnel stage",
			},
			[]string{"stage"},
		),
		StageOutput: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfinder_stage_output_total",
				Help: "Total items surviving each funnel stage",
			},
			[]string{"stage"},
		),
		StageRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfinder_stage_rejections_total",
				Help: "Total rejections per funnel stage, by reason",
			},
			[]string{"stage", "reason"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfinder_cache_hits_total",
				Help: "LLM evaluation cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfinder_cache_misses_total",
				Help: "LLM evaluation cache misses",
			},
			[]string{"cache"},
		),
		LLMCallsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketfinder_llm_calls_total",
				Help: "Total external LLM adjudication calls made",
			},
		),
		LLMBudgetTruncated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketfinder_llm_budget_truncated_total",
				Help: "Total pairs skipped due to per-batch LLM cost budget exhaustion",
			},
		),
		LLMCircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketfinder_llm_circuit_state",
				Help: "Circuit breaker state per LLM provider (0=closed,1=half-open,2=open)",
			},
			[]string{"provider"},
		),
		OpportunitiesEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketfinder_opportunities_emitted_total",
				Help: "Total arbitrage opportunities emitted",
			},
		),
		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfinder_pipeline_runs_total",
				Help: "Total pipeline runs by terminal status",
			},
			[]string{"status"},
		),
		PipelineWallTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketfinder_pipeline_wall_seconds",
				Help:    "Total wall-clock duration of a pipeline run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
	}
}

// MustRegister registers every metric against reg, panicking on
// duplicate registration (intended for process startup only).
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.StageDuration, r.StageInput, r.StageOutput, r.StageRejections,
		r.CacheHits, r.CacheMisses,
		r.LLMCallsTotal, r.LLMBudgetTruncated, r.LLMCircuitState,
		r.OpportunitiesEmitted, r.PipelineRuns, r.PipelineWallTime,
	)
}
