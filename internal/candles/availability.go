// Package candles combines persisted candle history with pull-through
// fetches from an external market-data source, grounded on the teacher's
// internal/market.CachedCoinGeckoClient check-cache -> fetch-through ->
// write-back shape (generalized here from a Redis price cache to a
// candle repository plus MarketDataSource split) and on
// internal/exchange/retry.go's pagination/backoff idiom for the batched
// history fetch.
package candles

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/coreerr"
)

const (
	batchSize          = 500
	maxBatches         = 200
	interBatchDelay    = 300 * time.Millisecond
	sufficiencyRatio   = 0.9
	recentBarsWanted   = 500
)

// Repository is the persisted-candle contract this layer reads from and
// writes back to. Save must be idempotent on the (exchange, symbol, period,
// time) key; callers may pass overlapping or previously-seen candles.
type Repository interface {
	Query(ctx context.Context, exchange, symbol string, period candle.Period, since, until int64) ([]candle.Candle, error)
	Save(ctx context.Context, exchange, symbol string, period candle.Period, candles []candle.Candle) error
}

// MarketDataSource is the external OHLCV source, abstracting over whatever
// exchange SDK backs it (e.g. adshao/go-binance/v2).
type MarketDataSource interface {
	FetchOHLCV(ctx context.Context, exchange, symbol string, period candle.Period, since int64, limit int) ([]candle.Candle, error)
}

// EnsureRange guarantees a contiguous ascending candle stream over
// [since, until), fetching from source only when persisted coverage falls
// below 90% of the expected bar count for the range.
func EnsureRange(ctx context.Context, repo Repository, source MarketDataSource, exchange, symbol string, period candle.Period, since, until int64) ([]candle.Candle, error) {
	periodSeconds, err := candle.Seconds(period)
	if err != nil {
		return nil, coreerr.New(coreerr.KindValidation, "candles.EnsureRange", err)
	}

	persisted, err := repo.Query(ctx, exchange, symbol, period, since, until)
	if err != nil {
		return nil, coreerr.New(coreerr.KindMarketDataUnavailable, "candles.EnsureRange query", err)
	}

	expected := (until - since) / periodSeconds
	if expected <= 0 {
		return persisted, nil
	}
	if float64(len(persisted))/float64(expected) >= sufficiencyRatio {
		return persisted, nil
	}

	fetched, err := fetchThrough(ctx, source, exchange, symbol, period, since, until)
	if err != nil && len(fetched) == 0 {
		return nil, coreerr.New(coreerr.KindMarketDataUnavailable, "candles.EnsureRange fetch", err)
	}

	if len(fetched) > 0 {
		if err := repo.Save(ctx, exchange, symbol, period, fetched); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist fetched candles")
		}
	}

	return mergeAscending(persisted, fetched), nil
}

// fetchThrough paginates from since in batches of up to 500 bars, dropping
// the last (possibly still-forming) candle of every batch, until until is
// reached, a batch returns fewer than 500 bars, or the batch cap is hit.
// A per-batch error breaks the loop; whatever was accumulated so far is
// still returned.
func fetchThrough(ctx context.Context, source MarketDataSource, exchange, symbol string, period candle.Period, since, until int64) ([]candle.Candle, error) {
	limiter := rate.NewLimiter(rate.Every(interBatchDelay), 1)
	var out []candle.Candle
	cursor := since

	for batch := 0; batch < maxBatches; batch++ {
		// The first Wait takes the limiter's initial token at once; each
		// later batch starts at least interBatchDelay after the one before.
		if err := limiter.Wait(ctx); err != nil {
			return out, err
		}

		bars, err := source.FetchOHLCV(ctx, exchange, symbol, period, cursor, batchSize)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Int("batch", batch).Msg("candle fetch batch failed, stopping with partial result")
			return out, err
		}
		if len(bars) == 0 {
			break
		}

		// The last candle of a batch may still be forming; never trust it.
		complete := bars[:len(bars)-1]
		out = append(out, complete...)

		last := bars[len(bars)-1]
		if len(bars) < batchSize || last.Time >= until {
			break
		}
		cursor = last.Time
	}

	return out, nil
}

// FetchRecent returns the most recent completed bars directly from source,
// for live-tick callers not watching the pair via a streaming subscription.
// Must not be used for long historical windows.
func FetchRecent(ctx context.Context, source MarketDataSource, exchange, symbol string, period candle.Period) ([]candle.Candle, error) {
	periodSeconds, err := candle.Seconds(period)
	if err != nil {
		return nil, coreerr.New(coreerr.KindValidation, "candles.FetchRecent", err)
	}
	since := time.Now().Unix() - periodSeconds*int64(recentBarsWanted+1)

	bars, err := source.FetchOHLCV(ctx, exchange, symbol, period, since, recentBarsWanted+1)
	if err != nil {
		return nil, coreerr.New(coreerr.KindMarketDataUnavailable, "candles.FetchRecent", err)
	}
	if len(bars) == 0 {
		return bars, nil
	}
	complete := bars[:len(bars)-1]
	if len(complete) > recentBarsWanted {
		complete = complete[len(complete)-recentBarsWanted:]
	}
	return complete, nil
}

// mergeAscending combines persisted and freshly-fetched candles, de-duplicating
// on time and returning them in strictly ascending order.
func mergeAscending(persisted, fetched []candle.Candle) []candle.Candle {
	byTime := make(map[int64]candle.Candle, len(persisted)+len(fetched))
	for _, c := range persisted {
		byTime[c.Time] = c
	}
	for _, c := range fetched {
		byTime[c.Time] = c
	}
	out := make([]candle.Candle, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sortCandlesAscending(out)
	return out
}

func sortCandlesAscending(candles []candle.Candle) {
	for i := 1; i < len(candles); i++ {
		for j := i; j > 0 && candles[j-1].Time > candles[j].Time; j-- {
			candles[j-1], candles[j] = candles[j], candles[j-1]
		}
	}
}
