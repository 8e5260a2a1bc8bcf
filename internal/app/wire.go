// Package app wires the pipeline's collaborators together from a
// loaded config.Config, the way the teacher's cmd_scan.go assembles a
// pipeline.ScanOptions and its supporting clients in one place.
package app

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/crossvenue/marketfinder/internal/adjudicator"
	"github.com/crossvenue/marketfinder/internal/cache"
	"github.com/crossvenue/marketfinder/internal/clock"
	"github.com/crossvenue/marketfinder/internal/config"
	"github.com/crossvenue/marketfinder/internal/domain/arbitrage"
	"github.com/crossvenue/marketfinder/internal/domain/bucket"
	"github.com/crossvenue/marketfinder/internal/domain/filter"
	"github.com/crossvenue/marketfinder/internal/domain/market"
	"github.com/crossvenue/marketfinder/internal/domain/mlscore"
	"github.com/crossvenue/marketfinder/internal/metrics"
	"github.com/crossvenue/marketfinder/internal/net/circuit"
	"github.com/crossvenue/marketfinder/internal/net/llmbudget"
	"github.com/crossvenue/marketfinder/internal/net/ratelimit"
	"github.com/crossvenue/marketfinder/internal/orchestrator"
	"github.com/crossvenue/marketfinder/internal/store"
)

// Options carries the pieces a caller must supply beyond cfg:
// a Provider for stage E and a Classifier for stage D, both of which
// spec §6 treats as pluggable capabilities. Classifier may be nil —
// a nil Classifier falls back to the stage-D heuristic (spec §4.D);
// Provider must not be nil since stage E always calls out.
type Options struct {
	Provider   adjudicator.Provider
	Classifier mlscore.Classifier
	Log        zerolog.Logger
}

// Built bundles every component New wires, so callers (the CLI, tests)
// can reach individual pieces (e.g. to close the Redis client) without
// re-deriving them.
type Built struct {
	Orchestrator *orchestrator.Orchestrator
	Store        store.Store
	Cache        cache.Cache
	RedisClient  *redis.Client
	Metrics      *metrics.Registry
}

// New builds every pipeline collaborator from cfg and returns a ready
// orchestrator.Orchestrator plus the backing resources the caller owns
// the lifecycle of (e.g. RedisClient.Close()).
func New(cfg config.Config, opts Options) (*Built, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("app: an adjudicator.Provider is required")
	}

	definitions, err := bucket.LoadDefinitions(cfg.BucketsPath)
	if err != nil {
		return nil, fmt.Errorf("app: load bucket definitions: %w", err)
	}
	bucketer := bucket.NewBucketer(definitions)

	normalizer := market.NewNormalizer(market.DefaultNormalizerConfig())

	filterCfg := filter.DefaultConfig()
	filterCfg.MinVolume = cfg.Funnel.MinVolume
	filterCfg.MinSpreadStage1 = cfg.Funnel.MinSpread
	filterCfg.MinTextSimilarity = cfg.Funnel.MinTextSimilarity
	filterCfg.MinLiquidityScore = cfg.Funnel.MinLiquidityScore
	filterCfg.MaxTimeDeltaDays = cfg.Funnel.MaxTimeDeltaDays
	filterCfg.MinArbitragePotential = cfg.Funnel.MinProfitPct
	filt := filter.NewFilter(filterCfg)

	mlCfg := mlscore.DefaultConfig()
	mlCfg.Threshold = cfg.Funnel.MLThreshold
	mlExtractor := mlscore.NewExtractor(mlscore.BucketSuccessRates{})
	scorer, err := mlscore.NewScorer(mlCfg, opts.Classifier, mlExtractor)
	if err != nil {
		return nil, fmt.Errorf("app: build ml scorer: %w", err)
	}

	reg := metrics.NewRegistry()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	llmCache := cache.NewRedisCache(redisClient, cfg.Redis.KeyPrefix)

	limiter := ratelimit.NewLimiter(float64(cfg.Concurrency.LLMRatePerMin)/60.0, cfg.Concurrency.LLMConcurrency)
	breaker := circuit.NewBreaker(circuit.DefaultConfig(opts.Provider.Name()))
	budget := llmbudget.NewTracker(cfg.LLM.MaxCostPerBatchUSD)

	adjCfg := adjudicator.DefaultConfig()
	adjCfg.ConfidenceThreshold = cfg.Funnel.LLMConfidenceThreshold
	adjCfg.CacheTTL = time.Duration(cfg.LLM.CacheTTLHours) * time.Hour
	adjCfg.RetryAttempts = cfg.LLM.RetryAttempts
	adjCfg.RequestTimeout = time.Duration(cfg.LLM.RequestTimeoutMS) * time.Millisecond
	adjCfg.MaxConcurrentCalls = cfg.Concurrency.LLMConcurrency
	adj := adjudicator.New(adjCfg, opts.Provider, limiter, breaker, budget, llmCache, opts.Log)

	arbCfg := arbitrage.DefaultConfig()
	arbCfg.FeePercentage = cfg.Arbitrage.FeePercentage
	arbCfg.FixedGasUSD = cfg.Arbitrage.FixedGasUSD
	arbCfg.SlippageCoefficient = cfg.Arbitrage.SlippageCoefficient
	arbCfg.MaxPositionUSD = cfg.Arbitrage.MaxPositionUSD
	arbCfg.KellyWinRate = cfg.Arbitrage.KellyWinRate
	arbCfg.MaxKellyFraction = cfg.Arbitrage.MaxKellyFraction
	arbCfg.MaxExecutionHours = float64(cfg.Orchestration.MaxExecutionHours)
	arbCfg.MinProfitPct = cfg.Funnel.MinProfitPct
	arbCfg.MaxRiskLevel = arbitrage.RiskLevel(cfg.Funnel.MaxRiskLevel)
	arbScorer := arbitrage.NewScorer(arbCfg)

	db, err := sqlxConnect(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}
	st := store.NewPostgresStore(db, time.Duration(cfg.Database.TimeoutSeconds)*time.Second)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.FailOnStageError = cfg.Orchestration.FailOnStageError
	orchCfg.MaxMarketsPerVenue = cfg.Orchestration.MaxMarketsPerVenue
	orchCfg.MaxExecutionHours = float64(cfg.Orchestration.MaxExecutionHours)
	orchCfg.NormalizeConcurrency = cfg.Concurrency.MaxConcurrentNormalizations

	orch := orchestrator.New(orchCfg, orchestrator.Deps{
		Normalizer:      normalizer,
		Bucketer:        bucketer,
		Filter:          filt,
		MLScorer:        scorer,
		Adjudicator:     adj,
		ArbitrageScorer: arbScorer,
		Store:           st,
		Clock:           clock.Real{},
		Metrics:         reg,
		Log:             opts.Log,
	})

	return &Built{
		Orchestrator: orch,
		Store:        st,
		Cache:        llmCache,
		RedisClient:  redisClient,
		Metrics:      reg,
	}, nil
}
