// Package circuit wraps sony/gobreaker around the LLM adjudication
// stage's external call (spec §4.E, §7), in the same per-provider
// isolation spirit as the teacher's providers/circuitbreakers.go —
// built on the pack's gobreaker dependency instead of a hand-rolled
// state machine, since gobreaker already does it (see DESIGN.md).
package circuit

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when the breaker is open and the call was rejected.
var ErrOpen = errors.New("circuit: breaker is open")

// Config configures one provider's breaker.
type Config struct {
	Name             string
	FailureThreshold uint32        // consecutive failures to trip open
	OpenTimeout      time.Duration // time in open state before probing half-open
	HalfOpenMaxCalls uint32
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker executes calls to one external provider through gobreaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Call executes fn if the breaker allows it, translating gobreaker's
// ErrOpenState/ErrTooManyRequests into the package's ErrOpen so callers
// (the stage-E fallback path) can treat every tripped-breaker outcome
// uniformly.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State reports the breaker's current state name, for metrics/logging.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
