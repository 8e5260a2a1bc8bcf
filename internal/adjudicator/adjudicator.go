package adjudicator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/crossvenue/marketfinder/internal/cache"
	"github.com/crossvenue/marketfinder/internal/domain/mlscore"
	"github.com/crossvenue/marketfinder/internal/domain/pair"
	"github.com/crossvenue/marketfinder/internal/net/circuit"
	"github.com/crossvenue/marketfinder/internal/net/llmbudget"
	"github.com/crossvenue/marketfinder/internal/net/ratelimit"
)

// Config holds stage-E tuning (spec §6 "LLM" config group).
type Config struct {
	ConfidenceThreshold  float64       // llm_confidence_threshold, default 0.75
	CacheTTL             time.Duration // cache_ttl_hours
	RetryAttempts        int
	RetryBaseDelay       time.Duration
	RequestTimeout       time.Duration
	MaxConcurrentCalls   int
	EstimatedCostPerCall float64
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:  0.75,
		CacheTTL:             24 * time.Hour,
		RetryAttempts:        3,
		RetryBaseDelay:       500 * time.Millisecond,
		RequestTimeout:       15 * time.Second,
		MaxConcurrentCalls:   5,
		EstimatedCostPerCall: 0.02,
	}
}

// Adjudicator evaluates pairs against an external LLM provider under
// rate limiting, a circuit breaker, a per-batch cost budget, and an
// at-most-once result cache (spec §4.E).
type Adjudicator struct {
	cfg      Config
	provider Provider
	limiter  *ratelimit.Limiter
	breaker  *circuit.Breaker
	budget   *llmbudget.Tracker
	cache    cache.Cache
	sem      chan struct{}
	log      zerolog.Logger
}

func New(cfg Config, provider Provider, limiter *ratelimit.Limiter, breaker *circuit.Breaker, budget *llmbudget.Tracker, c cache.Cache, log zerolog.Logger) *Adjudicator {
	maxConcurrent := cfg.MaxConcurrentCalls
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Adjudicator{
		cfg:      cfg,
		provider: provider,
		limiter:  limiter,
		breaker:  breaker,
		budget:   budget,
		cache:    c,
		sem:      make(chan struct{}, maxConcurrent),
		log:      log.With().Str("stage", "llm_adjudicator").Logger(),
	}
}

// Outcome is one pair's adjudication result, or a skip when the
// per-batch budget was already exhausted (spec §4.E, §7: "not an
// error").
type Outcome struct {
	Evaluation   *LLMEvaluation
	BudgetSkip   bool
}

// Evaluate adjudicates one pair, enforcing bounded concurrency via a
// semaphore and cooperative cancellation at the call boundary (spec
// §5 "Cancellation semantics").
func (a *Adjudicator) Evaluate(ctx context.Context, p *pair.MarketPair, pred mlscore.MLPrediction) (Outcome, error) {
	fingerprint := p.Fingerprint()

	if cached, hit, err := a.cache.Get(ctx, fingerprint); err == nil && hit {
		var eval LLMEvaluation
		if jsonErr := json.Unmarshal(cached, &eval); jsonErr == nil {
			eval.FromCache = true
			return Outcome{Evaluation: &eval}, nil
		}
	}

	if !a.budget.Reserve(a.cfg.EstimatedCostPerCall) {
		return Outcome{BudgetSkip: true}, nil
	}

	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	defer func() { <-a.sem }()

	if err := a.limiter.Wait(ctx, a.provider.Name()); err != nil {
		return Outcome{}, err
	}

	prompt := BuildPrompt(p, pred)
	raw, callErr := a.callWithRetry(ctx, prompt)

	eval := &LLMEvaluation{
		PairFingerprint: fingerprint,
		Provider:        a.provider.Name(),
		ModelVersion:    a.provider.ModelVersion(),
		EvaluatedAt:     time.Now().UTC(),
	}

	switch {
	case callErr != nil:
		// Persistent/transient external error exhausted retries, or the
		// circuit is open: degrade to a zero-confidence fallback (spec §7).
		a.log.Warn().Err(callErr).Str("pair", fingerprint).Msg("llm call failed, using fallback evaluation")
		eval.Confidence = 0
		eval.RecommendedAction = ActionReject
		eval.Reasoning = truncate(callErr.Error(), 500)
	default:
		parsed, parseErr := parseResponse(raw)
		if parseErr != nil {
			// Structured-parse failure: fallback per spec §4.E, not a
			// call failure — confidence 0.5, INVESTIGATE.
			a.log.Warn().Err(parseErr).Str("pair", fingerprint).Msg("llm response parse failed, using fallback evaluation")
			eval.Confidence = 0.5
			eval.RecommendedAction = ActionInvestigate
			eval.Reasoning = truncate(raw, 500)
		} else {
			eval.Confidence = clamp01(parsed.Confidence)
			eval.SemanticSimilarity = clamp01(parsed.SemanticSimilarity)
			eval.ArbitrageViability = clamp01(parsed.ArbitrageViability)
			eval.Reasoning = parsed.Reasoning
			eval.RecommendedAction = RecommendedAction(parsed.RecommendedAction)
		}
	}

	if encoded, err := json.Marshal(eval); err == nil {
		if err := a.cache.Set(ctx, fingerprint, encoded, a.cfg.CacheTTL); err != nil {
			a.log.Warn().Err(err).Str("pair", fingerprint).Msg("failed to cache llm evaluation")
		}
	}

	return Outcome{Evaluation: eval}, nil
}

// Passes reports whether an evaluation clears the acceptance threshold
// for stage F (spec §4.E: "only evaluations with confidence >= tau_llm
// ... are emitted").
func (a *Adjudicator) Passes(eval *LLMEvaluation) bool {
	return eval != nil && eval.Confidence >= a.cfg.ConfidenceThreshold
}

// callWithRetry calls the provider through the circuit breaker up to
// RetryAttempts times with exponential backoff between attempts, then
// returns the last error so the caller degrades to a fallback
// evaluation. Every failed call is retried: errors are not classified
// as transient or persistent. Only an open breaker (circuit.ErrOpen)
// or a done ctx stops the retries early.
func (a *Adjudicator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	var result string

	attempts := a.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		err := a.breaker.Call(callCtx, func(ctx context.Context) error {
			raw, _, callErr := a.provider.Evaluate(ctx, prompt)
			result = raw
			return callErr
		})
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, circuit.ErrOpen) {
			return "", lastErr
		}

		delay := a.cfg.RetryBaseDelay * time.Duration(math.Pow(2, float64(attempt)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
