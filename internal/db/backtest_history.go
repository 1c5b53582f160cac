package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantedge/stratcore/internal/backtest"
)

// BacktestHistory persists profitable back-test results past their job's
// TTL, satisfying C7's jobs.History interface. Only *backtest.Result
// values are accepted; other result shapes (e.g. multi-period aggregates)
// are rejected rather than silently dropped.
type BacktestHistory struct {
	db *DB
}

// NewBacktestHistory creates a BacktestHistory backed by db.
func NewBacktestHistory(db *DB) *BacktestHistory {
	return &BacktestHistory{db: db}
}

// Save inserts one back-test run's result, keyed by (run group, job).
func (h *BacktestHistory) Save(ctx context.Context, runGroupID string, jobID string, result interface{}) error {
	if h.db == nil || h.db.pool == nil {
		return fmt.Errorf("database connection not available")
	}

	r, ok := result.(*backtest.Result)
	if !ok || r == nil {
		return fmt.Errorf("backtest history: unsupported result type %T", result)
	}

	summaryJSON, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	optionsJSON, err := json.Marshal(r.StrategyOptions)
	if err != nil {
		return fmt.Errorf("marshal strategy options: %w", err)
	}

	const query = `
		INSERT INTO backtest_history (
			run_group_id, job_id, exchange, symbol, period, strategy_name,
			strategy_options, start_time, end_time, win_rate_pct, summary, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_group_id, job_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			win_rate_pct = EXCLUDED.win_rate_pct
	`

	_, err = h.db.pool.Exec(ctx, query,
		runGroupID,
		jobID,
		r.Exchange,
		r.Symbol,
		string(r.Period),
		r.StrategyName,
		optionsJSON,
		r.StartTime,
		r.EndTime,
		r.Summary.WinRatePct,
		summaryJSON,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save backtest history: %w", err)
	}

	return nil
}
