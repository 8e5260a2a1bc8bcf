// Package cache defines the evaluation-cache collaborator (spec §6):
// at-most-once LLM adjudication per pair fingerprint within a TTL.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized values by key with expiration. It is a
// capability interface (spec §6) — the pipeline only depends on this,
// never a concrete backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
