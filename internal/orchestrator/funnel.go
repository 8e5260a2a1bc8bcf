package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crossvenue/marketfinder/internal/domain/arbitrage"
	"github.com/crossvenue/marketfinder/internal/domain/bucket"
	"github.com/crossvenue/marketfinder/internal/domain/filter"
)

// stageAccumulator merges per-bucket StageMetric contributions into a
// single run-level metric under a mutex, matching spec §5's
// "single lock per resource" shared-state policy for the metrics
// aggregator.
type stageAccumulator struct {
	mu         sync.Mutex
	stage      StageName
	input      int
	output     int
	duration   time.Duration
	rejections map[string]int
	failed     bool
	errs       []string
}

func newAccumulator(stage StageName) *stageAccumulator {
	return &stageAccumulator{stage: stage, rejections: map[string]int{}}
}

func (a *stageAccumulator) add(input, output int, d time.Duration, rejections map[string]int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input += input
	a.output += output
	a.duration += d
	for reason, count := range rejections {
		a.rejections[reason] += count
	}
	if err != nil {
		a.failed = true
		a.errs = append(a.errs, err.Error())
	}
}

func (a *stageAccumulator) metric() StageMetric {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := StageMetric{
		Stage:            a.stage,
		InputCount:       a.input,
		OutputCount:      a.output,
		Duration:         a.duration,
		RejectionReasons: a.rejections,
		Failed:           a.failed,
	}
	if len(a.errs) > 0 {
		m.Err = fmt.Sprintf("%d bucket(s) failed: %s", len(a.errs), a.errs[0])
	}
	return m
}

// runFunnel processes every bucket pair through filter -> ml_score ->
// llm -> arbitrage, partitioned by bucket with bounded concurrency
// (spec §5: "by bucket for C/D/F"), and returns the accumulated
// run-level metrics for each of those four stages plus the
// opportunities that survived.
func (o *Orchestrator) runFunnel(ctx context.Context, bucketPairs []bucket.Pair) ([]*arbitrage.Opportunity, []StageMetric, error) {
	filterAcc := newAccumulator(StageFilter)
	mlAcc := newAccumulator(StageMLScore)
	llmAcc := newAccumulator(StageLLM)
	arbAcc := newAccumulator(StageArbitrage)

	var (
		mu            sync.Mutex
		opportunities []*arbitrage.Opportunity
	)

	limit := o.cfg.BucketConcurrency
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, bp := range bucketPairs {
		bp := bp
		g.Go(func() error {
			// Cancellation is checked at the bucket boundary (spec §5
			// "Cancellation semantics": "stages check for cancellation
			// at inter-pair boundaries (C/D/F)").
			if cancelled(gctx) {
				return nil
			}
			opps, err := o.processBucket(gctx, bp, filterAcc, mlAcc, llmAcc, arbAcc)
			if err != nil && o.cfg.FailOnStageError {
				return err
			}
			if len(opps) > 0 {
				mu.Lock()
				opportunities = append(opportunities, opps...)
				mu.Unlock()
			}
			return nil
		})
	}
	funnelErr := g.Wait()

	metrics := []StageMetric{filterAcc.metric(), mlAcc.metric(), llmAcc.metric(), arbAcc.metric()}
	for _, m := range metrics {
		o.emitStageMetric(m)
	}
	return opportunities, metrics, funnelErr
}

// processBucket runs one bucket pair's filtered candidates through ML
// scoring, LLM adjudication, and arbitrage scoring, in enumeration
// order (spec §5 ordering guarantees: "Within a bucket, MarketPairs
// preserve the (venue-A index, venue-B index) enumeration order
// through all filter stages").
func (o *Orchestrator) processBucket(ctx context.Context, bp bucket.Pair, filterAcc, mlAcc, llmAcc, arbAcc *stageAccumulator) ([]*arbitrage.Opportunity, error) {
	filterStart := time.Now()
	filterResult := o.deps.Filter.Run(bp)
	filterRejections := mergeFilterRejections(filterResult.Stats)
	filterInput := bp.PairsPossible
	filterAcc.add(filterInput, len(filterResult.Pairs), time.Since(filterStart), filterRejections, nil)

	var opportunities []*arbitrage.Opportunity
	now := o.deps.Clock.Now()

	for _, p := range filterResult.Pairs {
		if cancelled(ctx) {
			break
		}

		mlStart := time.Now()
		pred, err := o.deps.MLScorer.Score(p, now)
		mlAcc.add(1, boolToInt(err == nil && o.deps.MLScorer.Passes(pred)), time.Since(mlStart), nil, err)
		if err != nil {
			continue
		}
		if !o.deps.MLScorer.Passes(pred) {
			continue
		}

		llmStart := time.Now()
		outcome, err := o.deps.Adjudicator.Evaluate(ctx, p, pred)
		llmDuration := time.Since(llmStart)
		if err != nil {
			llmAcc.add(1, 0, llmDuration, map[string]int{"call_error": 1}, nil)
			continue
		}
		if outcome.BudgetSkip {
			llmAcc.add(1, 0, llmDuration, map[string]int{"budget_truncated": 1}, nil)
			continue
		}
		accepted := o.deps.Adjudicator.Passes(outcome.Evaluation)
		llmAcc.add(1, boolToInt(accepted), llmDuration, nil, nil)
		if !accepted {
			continue
		}

		arbStart := time.Now()
		opp, passes := o.deps.ArbitrageScorer.Score(p, outcome.Evaluation, now)
		arbAcc.add(1, boolToInt(passes), time.Since(arbStart), nil, nil)
		if !passes {
			continue
		}
		opportunities = append(opportunities, opp)
	}

	return opportunities, nil
}

func mergeFilterRejections(stats []*filter.StageStats) map[string]int {
	merged := map[string]int{}
	for _, s := range stats {
		for reason, count := range s.RejectionReasons {
			merged[reason] += count
		}
	}
	return merged
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sortOpportunities totally orders the final set by priority_score
// descending with opportunity_id as tiebreaker (spec §5, §8 property 6).
func sortOpportunities(opportunities []*arbitrage.Opportunity) {
	sort.SliceStable(opportunities, func(i, j int) bool {
		if opportunities[i].PriorityScore != opportunities[j].PriorityScore {
			return opportunities[i].PriorityScore > opportunities[j].PriorityScore
		}
		return opportunities[i].OpportunityID < opportunities[j].OpportunityID
	})
}
