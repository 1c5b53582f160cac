package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quantedge/stratcore/internal/candle"
)

// CandleRepository persists OHLCV history, satisfying C5's
// candles.Repository interface. Grounded on the teacher's
// StrategyRepository query idiom (parameterized SQL, pgx.ErrNoRows
// handling) applied to a time-series table instead of a config table.
type CandleRepository struct {
	db *DB
}

// NewCandleRepository creates a CandleRepository backed by db.
func NewCandleRepository(db *DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// Query returns the ascending candle history persisted for
// (exchange, symbol, period) within [since, until).
func (r *CandleRepository) Query(ctx context.Context, exchange, symbol string, period candle.Period, since, until int64) ([]candle.Candle, error) {
	if r.db == nil || r.db.pool == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	const query = `
		SELECT bucket_time, open, high, low, close, volume
		FROM candles
		WHERE exchange = $1 AND symbol = $2 AND period = $3
		  AND bucket_time >= $4 AND bucket_time < $5
		ORDER BY bucket_time ASC
	`

	rows, err := r.db.pool.Query(ctx, query, exchange, symbol, string(period), since, until)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var result []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return result, nil
}

// Save upserts candles for (exchange, symbol, period), keyed on bucket time
// so a re-fetched bar replaces its earlier, possibly partial, version.
func (r *CandleRepository) Save(ctx context.Context, exchange, symbol string, period candle.Period, candles []candle.Candle) error {
	if r.db == nil || r.db.pool == nil {
		return fmt.Errorf("database connection not available")
	}
	if len(candles) == 0 {
		return nil
	}

	const query = `
		INSERT INTO candles (exchange, symbol, period, bucket_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (exchange, symbol, period, bucket_time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(query, exchange, symbol, string(period), c.Time, c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	results := r.db.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range candles {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("save candle batch: %w", err)
		}
	}

	return nil
}
