package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/crossvenue/marketfinder/internal/adjudicator"
	"github.com/crossvenue/marketfinder/internal/clock"
	"github.com/crossvenue/marketfinder/internal/domain/arbitrage"
	"github.com/crossvenue/marketfinder/internal/domain/bucket"
	"github.com/crossvenue/marketfinder/internal/domain/filter"
	"github.com/crossvenue/marketfinder/internal/domain/market"
	"github.com/crossvenue/marketfinder/internal/domain/mlscore"
	"github.com/crossvenue/marketfinder/internal/extractor"
	"github.com/crossvenue/marketfinder/internal/metrics"
	"github.com/crossvenue/marketfinder/internal/store"
)

// Deps bundles the stage implementations and collaborators the
// orchestrator drives. Every field is required except Metrics, which
// is optional (a nil registry disables sideways metric emission).
type Deps struct {
	Normalizer      *market.Normalizer
	Bucketer        *bucket.Bucketer
	Filter          *filter.Filter
	MLScorer        *mlscore.Scorer
	Adjudicator     *adjudicator.Adjudicator
	ArbitrageScorer *arbitrage.Scorer
	Store           store.Store
	Clock           clock.Clock
	Metrics         *metrics.Registry
	Log             zerolog.Logger
}

// Orchestrator owns one pipeline run at a time (spec §4.G). It is safe
// to reuse across sequential runs; concurrent calls to Run on the same
// Orchestrator are not supported, matching the teacher's single-flight
// scan pipeline.
type Orchestrator struct {
	cfg  Config
	deps Deps
}

// New builds an Orchestrator from its dependencies.
func New(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Run executes one complete pipeline run: extract -> normalize ->
// bucket -> (filter -> ml_score -> llm -> arbitrage, per bucket) ->
// store. It returns the immutable PipelineExecution record even when
// the run fails or is cancelled (spec §4.G, §7: "The caller of the
// pipeline sees at most a single terminal status plus the full
// PipelineExecution record").
func (o *Orchestrator) Run(ctx context.Context, extractorA, extractorB extractor.Extractor, venueA, venueB market.Venue) (*Execution, error) {
	exec := &Execution{
		ExecutionID: uuid.NewString(),
		Status:      StatusPending,
		StartedAt:   o.deps.Clock.Now(),
	}
	log := o.deps.Log.With().Str("execution_id", exec.ExecutionID).Logger()

	runCtx := ctx
	var cancel context.CancelFunc
	if o.cfg.MaxExecutionHours > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.MaxExecutionHours*float64(time.Hour)))
		defer cancel()
	}

	exec.Status = StatusRunning
	log.Info().Msg("pipeline run starting")

	raw, extractMetric, extractErr := o.stageExtract(runCtx, extractorA, extractorB, venueA, venueB)
	exec.StageMetrics = append(exec.StageMetrics, extractMetric)
	if extractErr != nil && o.cfg.FailOnStageError {
		return o.finish(exec, StatusFailed, extractErr.Error())
	}
	if cancelled(runCtx) {
		return o.finish(exec, StatusCancelled, "")
	}

	normalized, normalizeMetric, normalizeErr := o.stageNormalize(runCtx, raw)
	exec.StageMetrics = append(exec.StageMetrics, normalizeMetric)
	if normalizeErr != nil && o.cfg.FailOnStageError {
		return o.finish(exec, StatusFailed, normalizeErr.Error())
	}
	if cancelled(runCtx) {
		return o.finish(exec, StatusCancelled, "")
	}

	marketsA, marketsB := splitByVenue(normalized, venueA, venueB)

	bucketPairs, bucketMetric, bucketErr := o.stageBucket(runCtx, marketsA, marketsB)
	exec.StageMetrics = append(exec.StageMetrics, bucketMetric)
	if bucketErr != nil && o.cfg.FailOnStageError {
		return o.finish(exec, StatusFailed, bucketErr.Error())
	}
	if cancelled(runCtx) {
		return o.finish(exec, StatusCancelled, "")
	}

	opportunities, funnelMetrics, funnelErr := o.runFunnel(runCtx, bucketPairs)
	exec.StageMetrics = append(exec.StageMetrics, funnelMetrics...)
	if funnelErr != nil && o.cfg.FailOnStageError {
		return o.finish(exec, StatusFailed, funnelErr.Error())
	}

	finalStatus := StatusCompleted
	if cancelled(runCtx) {
		finalStatus = StatusCancelled
	}

	sortOpportunities(opportunities)
	exec.Opportunities = opportunities
	exec.Status = finalStatus

	storeMetric := o.stageStore(ctx, normalized, opportunities, exec)
	exec.StageMetrics = append(exec.StageMetrics, storeMetric)

	return o.finish(exec, finalStatus, "")
}

func (o *Orchestrator) finish(exec *Execution, status Status, errMsg string) (*Execution, error) {
	exec.Status = status
	exec.Err = errMsg
	exec.FinishedAt = o.deps.Clock.Now()
	exec.WallTime = exec.FinishedAt.Sub(exec.StartedAt)

	if o.deps.Metrics != nil {
		o.deps.Metrics.PipelineRuns.WithLabelValues(string(status)).Inc()
		o.deps.Metrics.PipelineWallTime.Observe(exec.WallTime.Seconds())
		o.deps.Metrics.OpportunitiesEmitted.Add(float64(len(exec.Opportunities)))
	}

	o.deps.Log.Info().
		Str("execution_id", exec.ExecutionID).
		Str("status", string(status)).
		Dur("wall_time", exec.WallTime).
		Int("opportunities", len(exec.Opportunities)).
		Msg("pipeline run finished")

	if status == StatusFailed {
		return exec, fmt.Errorf("orchestrator: run %s failed: %s", exec.ExecutionID, errMsg)
	}
	return exec, nil
}

func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

// stageContext applies the configured soft deadline for a stage, if
// any (spec §5 "Timeouts").
func (o *Orchestrator) stageContext(parent context.Context, stage StageName) (context.Context, context.CancelFunc) {
	if d := o.cfg.deadlineFor(stage); d > 0 {
		return context.WithTimeout(parent, d)
	}
	return context.WithCancel(parent)
}

// recordStage measures fn, recovering a panic into a failed
// StageMetric instead of letting it cross the stage boundary (spec §7
// "Stage failure ... recorded in stage metrics").
func recordStage(stage StageName, input int, fn func() (output int, rejections map[string]int, err error)) (metric StageMetric, err error) {
	start := time.Now()
	metric = StageMetric{Stage: stage, InputCount: input, RejectionReasons: map[string]int{}}

	defer func() {
		if r := recover(); r != nil {
			metric.Failed = true
			metric.Err = fmt.Sprintf("panic: %v", r)
			err = fmt.Errorf("orchestrator: stage %s panicked: %v", stage, r)
		}
		metric.Duration = time.Since(start)
	}()

	output, rejections, fnErr := fn()
	metric.OutputCount = output
	if rejections != nil {
		metric.RejectionReasons = rejections
	}
	if fnErr != nil {
		metric.Failed = true
		metric.Err = fnErr.Error()
		err = fnErr
	}
	return metric, err
}

func (o *Orchestrator) emitStageMetric(m StageMetric) {
	if o.deps.Metrics == nil {
		return
	}
	o.deps.Metrics.StageDuration.WithLabelValues(string(m.Stage)).Observe(m.Duration.Seconds())
	o.deps.Metrics.StageInput.WithLabelValues(string(m.Stage)).Add(float64(m.InputCount))
	o.deps.Metrics.StageOutput.WithLabelValues(string(m.Stage)).Add(float64(m.OutputCount))
	for reason, count := range m.RejectionReasons {
		o.deps.Metrics.StageRejections.WithLabelValues(string(m.Stage), reason).Add(float64(count))
	}
}

// stageExtract fetches raw markets for both venues concurrently (spec
// §5: "Every external API call" is a suspension point).
func (o *Orchestrator) stageExtract(ctx context.Context, extractorA, extractorB extractor.Extractor, venueA, venueB market.Venue) ([]market.RawMarket, StageMetric, error) {
	ctx, cancel := o.stageContext(ctx, StageExtract)
	defer cancel()

	var rawA, rawB []market.RawMarket
	metric, err := recordStage(StageExtract, 0, func() (int, map[string]int, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rawA, err = extractorA.FetchMarkets(gctx, venueA, o.cfg.MaxMarketsPerVenue)
			if err != nil {
				return fmt.Errorf("extract %s: %w", venueA, err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			rawB, err = extractorB.FetchMarkets(gctx, venueB, o.cfg.MaxMarketsPerVenue)
			if err != nil {
				return fmt.Errorf("extract %s: %w", venueB, err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return len(rawA) + len(rawB), nil, err
		}
		return len(rawA) + len(rawB), nil, nil
	})
	o.emitStageMetric(metric)

	raw := make([]market.RawMarket, 0, len(rawA)+len(rawB))
	raw = append(raw, rawA...)
	raw = append(raw, rawB...)
	return raw, metric, err
}

// stageNormalize runs Normalize over every raw market with bounded
// concurrency (spec §5: "partitioning their input ... by market for
// A/B"). Per-record rejections are counted, never fatal (spec §4.A).
func (o *Orchestrator) stageNormalize(ctx context.Context, raw []market.RawMarket) ([]*market.NormalizedMarket, StageMetric, error) {
	ctx, cancel := o.stageContext(ctx, StageNormalize)
	defer cancel()

	var (
		mu         sync.Mutex
		normalized []*market.NormalizedMarket
		rejections = map[string]int{}
	)

	metric, err := recordStage(StageNormalize, len(raw), func() (int, map[string]int, error) {
		limit := o.cfg.NormalizeConcurrency
		if limit <= 0 {
			limit = 1
		}
		sem := make(chan struct{}, limit)
		var wg sync.WaitGroup
		now := o.deps.Clock.Now()

		for _, rm := range raw {
			if cancelled(ctx) {
				break
			}
			rm := rm
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				m, rejErr := o.deps.Normalizer.Normalize(rm, now)
				mu.Lock()
				defer mu.Unlock()
				if rejErr != nil {
					rejections[string(rejErr.Reason)]++
					return
				}
				normalized = append(normalized, m)
			}()
		}
		wg.Wait()
		return len(normalized), rejections, nil
	})
	o.emitStageMetric(metric)
	return normalized, metric, err
}

func splitByVenue(markets []*market.NormalizedMarket, venueA, venueB market.Venue) (a, b []*market.NormalizedMarket) {
	for _, m := range markets {
		switch m.Venue {
		case venueA:
			a = append(a, m)
		case venueB:
			b = append(b, m)
		}
	}
	return a, b
}

// stageBucket assigns every market to its bucket and emits cross-venue
// bucket pairs (spec §4.B).
func (o *Orchestrator) stageBucket(ctx context.Context, marketsA, marketsB []*market.NormalizedMarket) ([]bucket.Pair, StageMetric, error) {
	ctx, cancel := o.stageContext(ctx, StageBucket)
	defer cancel()
	_ = ctx // bucketing is pure compute; no suspension points within it

	var pairs []bucket.Pair
	metric, err := recordStage(StageBucket, len(marketsA)+len(marketsB), func() (int, map[string]int, error) {
		pairs = o.deps.Bucketer.BucketMarkets(marketsA, marketsB)
		totalPairs := 0
		for _, p := range pairs {
			totalPairs += p.PairsPossible
		}
		return totalPairs, nil, nil
	})
	o.emitStageMetric(metric)
	return pairs, metric, err
}

// stageStore persists normalized markets, the final opportunity set,
// and the execution record itself (spec §6). Store writes use the
// caller's context bounded by the store stage's own deadline, not the
// run context, so a run whose MaxExecutionHours deadline passed is
// still written. If the caller's context itself is cancelled, the
// writes fail and the store metric records the error.
func (o *Orchestrator) stageStore(ctx context.Context, normalized []*market.NormalizedMarket, opportunities []*arbitrage.Opportunity, exec *Execution) StageMetric {
	ctx, cancel := o.stageContext(ctx, StageStore)
	defer cancel()

	metric, _ := recordStage(StageStore, len(normalized)+len(opportunities), func() (int, map[string]int, error) {
		if err := o.deps.Store.PutMarkets(ctx, normalized); err != nil {
			return 0, nil, fmt.Errorf("store markets: %w", err)
		}
		if err := o.deps.Store.PutOpportunities(ctx, opportunities); err != nil {
			return len(normalized), nil, fmt.Errorf("store opportunities: %w", err)
		}

		record := store.ExecutionRecord{
			ExecutionID: exec.ExecutionID,
			Status:      string(exec.Status),
			StartedAt:   exec.StartedAt,
			FinishedAt:  o.deps.Clock.Now(),
			StageCounts: stageCounts(exec.StageMetrics),
		}
		if err := o.deps.Store.PutExecution(ctx, record); err != nil {
			return len(normalized) + len(opportunities), nil, fmt.Errorf("store execution: %w", err)
		}
		return len(normalized) + len(opportunities), nil, nil
	})
	o.emitStageMetric(metric)
	return metric
}

func stageCounts(metrics []StageMetric) map[string]int {
	counts := make(map[string]int, len(metrics))
	for _, m := range metrics {
		counts[string(m.Stage)] = m.OutputCount
	}
	return counts
}
