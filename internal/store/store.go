// Package store defines the Store collaborator (spec §6): idempotent
// persistence for normalized markets, arbitrage opportunities, and
// pipeline execution records. All writes are idempotent on their
// primary keys.
package store

import (
	"context"
	"time"

	"github.com/crossvenue/marketfinder/internal/domain/arbitrage"
	"github.com/crossvenue/marketfinder/internal/domain/market"
)

// ExecutionRecord is the persisted form of a pipeline run (spec §4.G).
type ExecutionRecord struct {
	ExecutionID string
	Status      string
	StartedAt   time.Time
	FinishedAt  time.Time
	StageCounts map[string]int
}

// Store is the persistence collaborator. Every write method is
// idempotent on its primary key (spec §6).
type Store interface {
	PutMarkets(ctx context.Context, batch []*market.NormalizedMarket) error
	PutOpportunities(ctx context.Context, batch []*arbitrage.Opportunity) error
	PutExecution(ctx context.Context, record ExecutionRecord) error

	// RecentOpportunities and ExecutionByID serve the monitoring surface
	// only; the core pipeline never reads its own writes back.
	RecentOpportunities(ctx context.Context, limit int) ([]*arbitrage.Opportunity, error)
	ExecutionByID(ctx context.Context, executionID string) (*ExecutionRecord, error)
}
