// Package executor drives one strategy over one ascending candle sequence,
// candle by candle, collecting a SignalRow per candle. Grounded on the
// teacher's pkg/backtest.Engine.Run loop (Initialize strategy -> step loop ->
// Finalize), generalized from its multi-symbol BUY/SELL/HOLD stepping model
// to the single-symbol long/short/close EvaluationContext/Signal model this
// core's strategies implement.
package executor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/coreerr"
	"github.com/quantedge/stratcore/internal/indicators"
	"github.com/quantedge/stratcore/internal/strategy"
)

// SignalRow is one candle's output: the observed price, the decision (if
// any), and whatever debug fields the strategy attached.
type SignalRow struct {
	Time   int64
	Price  float64
	Signal *strategy.Direction
	Debug  map[string]interface{}
}

// Execute runs strat over candlesAsc, sequentially and without internal
// parallelism (indicator values at i+1 may depend on strategy-internal state
// produced while evaluating i). Multiple runs of the same or different
// strategies may execute concurrently; nothing here is shared across calls.
func Execute(ctx context.Context, strat strategy.Strategy, candlesAsc []candle.Candle) ([]SignalRow, error) {
	if len(candlesAsc) == 0 {
		return nil, coreerr.New(coreerr.KindValidation, "executor.Execute", fmt.Errorf("candles must be non-empty"))
	}
	if !candle.AscendingStrict(candlesAsc) {
		return nil, coreerr.New(coreerr.KindValidation, "executor.Execute", fmt.Errorf("candles must be strictly ascending in time"))
	}

	defs := strat.DefineIndicators()
	series := make(map[string]indicators.Series, len(defs))
	for name, def := range defs {
		s, err := indicators.Build(def, candlesAsc)
		if err != nil {
			return nil, coreerr.New(coreerr.KindStrategyRuntime, fmt.Sprintf("build indicator %q", name), err)
		}
		series[name] = s
	}

	rows := make([]SignalRow, 0, len(candlesAsc))
	var lastSignal strategy.Direction
	var hasLast bool

	for i := range candlesAsc {
		evalCtx := strategy.NewEvaluationContext(i, candlesAsc, series, lastSignal, hasLast)
		signal := strategy.NewSignal(lastSignal, hasLast)

		if err := runOneCandle(ctx, strat, evalCtx, signal); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("strategy execute failed, continuing")
			rows = append(rows, SignalRow{
				Time:  candlesAsc[i].Time,
				Price: candlesAsc[i].Close,
				Debug: map[string]interface{}{"error": err.Error()},
			})
			continue
		}

		decision, hasDecision := signal.Decision()
		row := SignalRow{
			Time:  candlesAsc[i].Time,
			Price: candlesAsc[i].Close,
			Debug: signal.DebugFields(),
		}
		if hasDecision {
			d := decision
			row.Signal = &d
			switch decision {
			case strategy.Long, strategy.Short:
				lastSignal = decision
				hasLast = true
			case strategy.Close:
				hasLast = false
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// runOneCandle isolates one strategy invocation so a panicking strategy
// cannot take down the whole run, matching the non-fatal per-candle failure
// semantics the contract requires.
func runOneCandle(ctx context.Context, strat strategy.Strategy, evalCtx *strategy.EvaluationContext, signal *strategy.Signal) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	return strat.Execute(ctx, evalCtx, signal)
}
