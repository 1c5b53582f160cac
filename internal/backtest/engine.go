// Package backtest replays a strategy over historical candles and reports
// position/trade/performance statistics. Grounded on pkg/backtest/engine.go
// (position/trade bookkeeping: Position, ClosedPosition, executeBuy/
// executeSell, closeAllPositions forced-close at run end) for the overall
// ledger shape, but rewritten to a single-position ledger rather than the
// teacher's multi-symbol concurrent-position model, and to additive (not
// compounded) per-trade PnL against a fixed initial_capital. The
// job-service boundary this package's results flow through is
// internal/jobs, not a direct DB writer.
package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/candles"
	"github.com/quantedge/stratcore/internal/coreerr"
	"github.com/quantedge/stratcore/internal/executor"
	"github.com/quantedge/stratcore/internal/strategy"
	"github.com/quantedge/stratcore/internal/validator"
)

const (
	minCandlesForRun        = 10
	defaultValidatorTimeout = 10 * time.Second
)

// Position is the single open position tracked during a run.
type Position struct {
	Side           strategy.Direction
	EntryPrice     float64
	EntryTime      int64
	PeakPrice      float64
	TroughPrice    float64
	AIConfirmation string
}

// Trade is one closed position.
type Trade struct {
	EntryTime      int64
	ExitTime       int64
	EntryPrice     float64
	ExitPrice      float64
	Side           strategy.Direction
	ProfitPercent  float64
	ProfitAbsolute float64
	AIConfirmation string // "", "confirmed", "rejected"
	ForcedAtRunEnd bool
}

// Summary aggregates a run's trades.
type Summary struct {
	TotalTrades      int
	ProfitableTrades int
	LosingTrades     int
	WinRatePct       float64
	TotalProfitPct   float64
	AverageProfitPct float64
	MaxDrawdownPct   float64
	SharpeRatio      float64
}

// Result is the complete output of one back-test run.
type Result struct {
	Exchange        string
	Symbol          string
	Period          candle.Period
	StartTime       int64
	EndTime         int64
	StrategyName    string
	StrategyOptions map[string]interface{}
	CandlesAsc      []candle.Candle
	Rows            []executor.SignalRow
	Trades          []Trade
	IndicatorKeys   []string
	Summary         Summary
}

// Params configures one run: run(strategy, params) -> BacktestResult per §4.4.
type Params struct {
	Exchange       string
	Symbol         string
	Period         candle.Period
	Hours          float64
	InitialCapital float64
	UseAI          bool
}

// Deps are the external collaborators a run needs: C5 for candle history and
// an optional C8 backend for AI entry confirmation.
type Deps struct {
	Repo             candles.Repository
	Source           candles.MarketDataSource
	ValidatorBackend validator.Validator
	ValidatorTimeout time.Duration // zero uses defaultValidatorTimeout
	Now              func() int64
}

// Run executes a complete back-test per §4.4: fetch candles, run the
// executor, simulate a single-position ledger, and compute summary stats.
func Run(ctx context.Context, strat strategy.Strategy, strategyName string, params Params, deps Deps) (*Result, error) {
	now := deps.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	endTime := now()
	startTime := endTime - int64(params.Hours*3600)

	candlesAsc, err := candles.EnsureRange(ctx, deps.Repo, deps.Source, params.Exchange, params.Symbol, params.Period, startTime, endTime)
	if err != nil {
		return nil, err
	}
	if len(candlesAsc) < minCandlesForRun || (len(candlesAsc) > 0 && candlesAsc[len(candlesAsc)-1].Time < startTime) {
		return nil, coreerr.New(coreerr.KindInsufficientData, "backtest.Run", fmt.Errorf("need at least %d candles covering the requested range, have %d", minCandlesForRun, len(candlesAsc)))
	}

	rows, err := executor.Execute(ctx, strat, candlesAsc)
	if err != nil {
		return nil, coreerr.New(coreerr.KindStrategyRuntime, "backtest.Run executor", err)
	}

	trades := simulate(ctx, rows, candlesAsc, params, deps)
	summary := summarize(trades)

	defs := strat.DefineIndicators()
	keys := make([]string, 0, len(defs))
	for name := range defs {
		keys = append(keys, name)
	}

	return &Result{
		Exchange:        params.Exchange,
		Symbol:          params.Symbol,
		Period:          params.Period,
		StartTime:       startTime,
		EndTime:         endTime,
		StrategyName:    strategyName,
		StrategyOptions: strat.DefaultOptions(),
		CandlesAsc:      candlesAsc,
		Rows:            rows,
		Trades:          trades,
		IndicatorKeys:   keys,
		Summary:         summary,
	}, nil
}

// simulate walks rows in order, maintaining at most one open position. An
// opposite-direction entry while a position is open is treated as a
// close-then-open in the same step; both events are recorded. The position,
// if any, is force-closed at the last row's price.
func simulate(ctx context.Context, rows []executor.SignalRow, candlesAsc []candle.Candle, params Params, deps Deps) []Trade {
	var trades []Trade
	var open *Position

	closeAt := func(row executor.SignalRow, forced bool) {
		if open == nil {
			return
		}
		trades = append(trades, closeTrade(*open, row.Time, row.Price, params.InitialCapital, forced))
		open = nil
	}

	for i, row := range rows {
		if open != nil {
			if row.Price > open.PeakPrice {
				open.PeakPrice = row.Price
			}
			if row.Price < open.TroughPrice {
				open.TroughPrice = row.Price
			}
		}

		if row.Signal == nil {
			continue
		}

		switch *row.Signal {
		case strategy.Close:
			closeAt(row, false)
		case strategy.Long, strategy.Short:
			if open != nil && open.Side != *row.Signal {
				closeAt(row, false)
			}
			if open == nil {
				confirmation := confirmEntry(ctx, params, deps, *row.Signal, candlesAsc, i)
				if params.UseAI && confirmation != "confirmed" {
					continue
				}
				open = &Position{Side: *row.Signal, EntryPrice: row.Price, EntryTime: row.Time, PeakPrice: row.Price, TroughPrice: row.Price, AIConfirmation: confirmation}
			}
		}
	}

	if open != nil && len(rows) > 0 {
		last := rows[len(rows)-1]
		closeAt(last, true)
	}

	return trades
}

// confirmEntry asks C8 to confirm the candidate entry when use_ai is set,
// returning "", "confirmed" or "rejected". Rejection suppresses the entry;
// timeouts or errors count as "rejected" per §4.4 step 6, but never abort
// the run.
func confirmEntry(ctx context.Context, params Params, deps Deps, side strategy.Direction, candlesAsc []candle.Candle, index int) string {
	if !params.UseAI || deps.ValidatorBackend == nil {
		return ""
	}
	lookback := index + 1
	if lookback > 50 {
		lookback = 50
	}
	packet := validator.FeaturePacket{
		Symbol:        params.Symbol,
		Side:          string(side),
		RecentCandles: candlesAsc[index+1-lookback : index+1],
	}
	timeout := defaultValidatorTimeout
	if deps.ValidatorTimeout > 0 {
		timeout = deps.ValidatorTimeout
	}
	result := validator.Validate(ctx, deps.ValidatorBackend, packet, timeout)
	if result.Confirmed {
		return "confirmed"
	}
	return "rejected"
}

func closeTrade(pos Position, exitTime int64, exitPrice float64, initialCapital float64, forced bool) Trade {
	profitPct := (exitPrice - pos.EntryPrice) / pos.EntryPrice * 100
	if pos.Side == strategy.Short {
		profitPct = -profitPct
	}
	return Trade{
		EntryTime:      pos.EntryTime,
		ExitTime:       exitTime,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      exitPrice,
		Side:           pos.Side,
		ProfitPercent:  profitPct,
		ProfitAbsolute: initialCapital * profitPct / 100,
		AIConfirmation: pos.AIConfirmation,
		ForcedAtRunEnd: forced,
	}
}

// summarize computes §4.4 step 7's aggregate statistics. total_profit_pct is
// additive across trades (capital is not compounded, an explicit design
// choice); sharpe_ratio is a plain mean/stddev over per-trade profit_percent
// with no risk-free-rate subtraction and no annualization, matching the
// teacher's internal/metrics/updater.go updateSharpeRatio rather than the
// teacher's pkg/backtest/metrics.go annualized, rate-adjusted variant.
func summarize(trades []Trade) Summary {
	var s Summary
	s.TotalTrades = len(trades)
	if s.TotalTrades == 0 {
		return s
	}

	returns := make([]float64, s.TotalTrades)
	var totalProfit float64
	for i, t := range trades {
		returns[i] = t.ProfitPercent
		totalProfit += t.ProfitPercent
		if t.ProfitPercent > 0 {
			s.ProfitableTrades++
		} else if t.ProfitPercent < 0 {
			s.LosingTrades++
		}
	}

	s.WinRatePct = float64(s.ProfitableTrades) / float64(s.TotalTrades) * 100
	s.TotalProfitPct = totalProfit
	s.AverageProfitPct = totalProfit / float64(s.TotalTrades)
	s.MaxDrawdownPct = maxDrawdown(returns)
	s.SharpeRatio = sharpeRatio(returns)
	return s
}

// maxDrawdown computes the running equity curve e_k = sum(r_i for i<=k) and
// returns max_k(max_{j<=k} e_j - e_k), always >= 0.
func maxDrawdown(returns []float64) float64 {
	var cumulative, peak, maxDD float64
	for i, r := range returns {
		cumulative += r
		if i == 0 || cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func sharpeRatio(returns []float64) float64 {
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(len(returns)))
	if stddev == 0 {
		return 0
	}
	return mean / stddev
}
