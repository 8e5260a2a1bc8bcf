package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/crossvenue/marketfinder/internal/domain/arbitrage"
	"github.com/crossvenue/marketfinder/internal/domain/market"
)

// PostgresStore is a Store backed by PostgreSQL via sqlx, modeled on
// the teacher's persistence/postgres upsert-batch pattern: one
// transaction per batch, ON CONFLICT DO UPDATE keeps writes idempotent
// on their primary keys.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

func (s *PostgresStore) PutMarkets(ctx context.Context, batch []*market.NormalizedMarket) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(batch)/50+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin markets tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO normalized_markets
			(venue, external_id, title, category, semantic_bucket, bucket_confidence,
			 volume, liquidity, close_time, status, normalized_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (venue, external_id, normalized_at) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			semantic_bucket = EXCLUDED.semantic_bucket,
			bucket_confidence = EXCLUDED.bucket_confidence,
			volume = EXCLUDED.volume,
			liquidity = EXCLUDED.liquidity,
			close_time = EXCLUDED.close_time,
			status = EXCLUDED.status`)
	if err != nil {
		return fmt.Errorf("store: prepare markets upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range batch {
		if _, err := stmt.ExecContext(ctx, m.Venue, m.ExternalID, m.Title, m.Category,
			m.SemanticBucket, m.BucketConfidence, m.Volume, m.Liquidity, m.CloseTime, m.Status, now); err != nil {
			return fmt.Errorf("store: upsert market %s: %w", m.Key(), err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) PutOpportunities(ctx context.Context, batch []*arbitrage.Opportunity) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(batch)/50+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin opportunities tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO arbitrage_opportunities
			(opportunity_id, market_a_id, market_b_id, bucket_name, arbitrage_type,
			 position_size, risk_level, priority_score, expected_profit_usd,
			 expected_profit_percentage, cost, risk, metrics, detected_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (opportunity_id) DO UPDATE SET
			priority_score = EXCLUDED.priority_score,
			risk_level = EXCLUDED.risk_level`)
	if err != nil {
		return fmt.Errorf("store: prepare opportunities upsert: %w", err)
	}
	defer stmt.Close()

	for _, o := range batch {
		costJSON, err := json.Marshal(o.Cost)
		if err != nil {
			return fmt.Errorf("store: marshal cost for %s: %w", o.OpportunityID, err)
		}
		riskJSON, err := json.Marshal(o.Risk)
		if err != nil {
			return fmt.Errorf("store: marshal risk for %s: %w", o.OpportunityID, err)
		}
		metricsJSON, err := json.Marshal(o.Metrics)
		if err != nil {
			return fmt.Errorf("store: marshal metrics for %s: %w", o.OpportunityID, err)
		}

		if _, err := stmt.ExecContext(ctx, o.OpportunityID, o.MarketAID, o.MarketBID, o.BucketName,
			o.ArbitrageType, o.PositionSize, o.Risk.RiskLevel, o.PriorityScore,
			o.Metrics.ExpectedProfitUSD, o.Metrics.ExpectedProfitPercentage,
			costJSON, riskJSON, metricsJSON, o.DetectedAt, o.ExpiresAt); err != nil {
			return fmt.Errorf("store: upsert opportunity %s: %w", o.OpportunityID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) PutExecution(ctx context.Context, record ExecutionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stageCountsJSON, err := json.Marshal(record.StageCounts)
	if err != nil {
		return fmt.Errorf("store: marshal stage counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_executions (execution_id, status, started_at, finished_at, stage_counts)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (execution_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			stage_counts = EXCLUDED.stage_counts`,
		record.ExecutionID, record.Status, record.StartedAt, record.FinishedAt, stageCountsJSON)
	if err != nil {
		return fmt.Errorf("store: upsert execution %s: %w", record.ExecutionID, err)
	}
	return nil
}

func (s *PostgresStore) RecentOpportunities(ctx context.Context, limit int) ([]*arbitrage.Opportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, `
		SELECT opportunity_id, market_a_id, market_b_id, bucket_name, arbitrage_type,
		       position_size, priority_score, detected_at, expires_at
		FROM arbitrage_opportunities
		ORDER BY priority_score DESC, opportunity_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent opportunities: %w", err)
	}
	defer rows.Close()

	var out []*arbitrage.Opportunity
	for rows.Next() {
		o := &arbitrage.Opportunity{}
		if err := rows.Scan(&o.OpportunityID, &o.MarketAID, &o.MarketBID, &o.BucketName,
			&o.ArbitrageType, &o.PositionSize, &o.PriorityScore, &o.DetectedAt, &o.ExpiresAt); err != nil {
			return nil, fmt.Errorf("store: scan opportunity row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ExecutionByID(ctx context.Context, executionID string) (*ExecutionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var record ExecutionRecord
	var stageCountsJSON []byte
	err := s.db.QueryRowxContext(ctx, `
		SELECT execution_id, status, started_at, finished_at, stage_counts
		FROM pipeline_executions WHERE execution_id = $1`, executionID).
		Scan(&record.ExecutionID, &record.Status, &record.StartedAt, &record.FinishedAt, &stageCountsJSON)
	if err != nil {
		return nil, fmt.Errorf("store: get execution %s: %w", executionID, err)
	}
	if err := json.Unmarshal(stageCountsJSON, &record.StageCounts); err != nil {
		return nil, fmt.Errorf("store: unmarshal stage counts: %w", err)
	}
	return &record, nil
}
