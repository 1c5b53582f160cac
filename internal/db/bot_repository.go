package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/scheduler"
)

// BotRepository satisfies C6's scheduler.BotProvider, reading bot
// configuration from profile storage this core owns as a thin table --
// the scheduler itself holds no bot state, per the data model's note that
// a Bot is owned externally. Grounded on CandleRepository's query idiom.
type BotRepository struct {
	db *DB
}

// NewBotRepository creates a BotRepository backed by db.
func NewBotRepository(db *DB) *BotRepository {
	return &BotRepository{db: db}
}

// RunningBots satisfies scheduler.BotProvider, returning only bots whose
// status is "running".
func (r *BotRepository) RunningBots(ctx context.Context) ([]scheduler.Bot, error) {
	if r.db == nil || r.db.pool == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	const query = `
		SELECT id, profile_id, exchange, strategy_name, pair, period, capital, mode, status, options
		FROM bots
		WHERE status = 'running'
		ORDER BY id ASC
	`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query running bots: %w", err)
	}
	defer rows.Close()

	var bots []scheduler.Bot
	for rows.Next() {
		var (
			b           scheduler.Bot
			period      string
			mode        string
			status      string
			optionsJSON []byte
		)
		if err := rows.Scan(&b.ID, &b.ProfileID, &b.Exchange, &b.StrategyName, &b.Pair, &period, &b.Capital, &mode, &status, &optionsJSON); err != nil {
			return nil, fmt.Errorf("scan bot row: %w", err)
		}
		b.Period = candle.Period(period)
		b.Mode = scheduler.Mode(mode)
		b.Status = scheduler.Status(status)
		if len(optionsJSON) > 0 {
			if err := json.Unmarshal(optionsJSON, &b.Options); err != nil {
				return nil, fmt.Errorf("unmarshal bot options for %s: %w", b.ID, err)
			}
		}
		bots = append(bots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bot rows: %w", err)
	}

	return bots, nil
}
