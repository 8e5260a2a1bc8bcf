// Package ratelimit adapts the teacher's per-host token-bucket limiter
// to the LLM adjudication stage's single external call: a token-bucket
// limiter keyed by provider name, sleeping the caller rather than
// dropping requests (spec §4.E).
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate-limits calls to one or more named LLM providers.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter allowing rps requests/second per
// provider, with the given burst capacity.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) getLimiter(provider string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[provider]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[provider]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[provider] = limiter
	return limiter
}

// Wait blocks until a call to provider is permitted, or ctx is done.
// The limiter sleeps the caller; it never drops a request (spec §4.E).
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	return l.getLimiter(provider).Wait(ctx)
}

// SetRPS updates the requests-per-second rate for every tracked provider.
func (l *Limiter) SetRPS(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps = rps
	for _, limiter := range l.limiters {
		limiter.SetLimit(rate.Limit(rps))
	}
}
