package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/indicators"
	"github.com/quantedge/stratcore/internal/strategy"
	"github.com/quantedge/stratcore/internal/validator"
)

type memRepo struct {
	candles []candle.Candle
}

func (r *memRepo) Query(ctx context.Context, exchange, symbol string, period candle.Period, since, until int64) ([]candle.Candle, error) {
	var out []candle.Candle
	for _, c := range r.candles {
		if c.Time >= since && c.Time < until {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) Save(ctx context.Context, exchange, symbol string, period candle.Period, cs []candle.Candle) error {
	r.candles = append(r.candles, cs...)
	return nil
}

type stubSource struct{}

func (stubSource) FetchOHLCV(ctx context.Context, exchange, symbol string, period candle.Period, since int64, limit int) ([]candle.Candle, error) {
	return nil, nil
}

// scriptedStrategy emits a fixed sequence of directions, one per candle,
// by index; nil entries mean no decision that candle.
type scriptedStrategy struct {
	script []*strategy.Direction
}

func (s *scriptedStrategy) Description() string                    { return "test" }
func (s *scriptedStrategy) DefaultOptions() map[string]interface{} { return map[string]interface{}{} }
func (s *scriptedStrategy) DefineIndicators() map[string]indicators.Definition {
	return map[string]indicators.Definition{}
}
func (s *scriptedStrategy) Execute(ctx context.Context, evalCtx *strategy.EvaluationContext, signal *strategy.Signal) error {
	i := evalCtx.Index()
	if i >= len(s.script) || s.script[i] == nil {
		return nil
	}
	switch *s.script[i] {
	case strategy.Long:
		signal.Long()
	case strategy.Short:
		signal.Short()
	case strategy.Close:
		signal.CloseSignal()
	}
	return nil
}

func dir(d strategy.Direction) *strategy.Direction { return &d }

func buildCandles(prices []float64) []candle.Candle {
	out := make([]candle.Candle, len(prices))
	for i, p := range prices {
		out[i] = candle.Candle{Time: int64(i) * 60, Open: p, High: p, Low: p, Close: p, Volume: 1}
	}
	return out
}

func TestRun_SimpleLongThenClose(t *testing.T) {
	prices := []float64{100, 100, 110, 110, 110, 110, 110, 110, 110, 110, 110}
	cs := buildCandles(prices)
	repo := &memRepo{candles: cs}

	script := make([]*strategy.Direction, len(cs))
	script[1] = dir(strategy.Long)
	script[3] = dir(strategy.Close)
	strat := &scriptedStrategy{script: script}

	result, err := Run(context.Background(), strat, "scripted", Params{
		Exchange:       "binance",
		Symbol:         "BTCUSDT",
		Period:         candle.Period1m,
		Hours:          1,
		InitialCapital: 1000,
	}, Deps{
		Repo:   repo,
		Source: stubSource{},
		Now:    func() int64 { return cs[len(cs)-1].Time + 60 },
	})

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, strategy.Long, trade.Side)
	assert.InDelta(t, 10.0, trade.ProfitPercent, 0.001)
	assert.False(t, trade.ForcedAtRunEnd)
	assert.Equal(t, 1, result.Summary.TotalTrades)
	assert.Equal(t, 1, result.Summary.ProfitableTrades)
	assert.InDelta(t, 100.0, result.Summary.WinRatePct, 0.001)
}

func TestRun_ForcesCloseAtRunEnd(t *testing.T) {
	prices := []float64{100, 100, 90, 90, 90, 90, 90, 90, 90, 90, 90}
	cs := buildCandles(prices)
	repo := &memRepo{candles: cs}

	script := make([]*strategy.Direction, len(cs))
	script[1] = dir(strategy.Short)
	strat := &scriptedStrategy{script: script}

	result, err := Run(context.Background(), strat, "scripted", Params{
		Exchange:       "binance",
		Symbol:         "BTCUSDT",
		Period:         candle.Period1m,
		Hours:          1,
		InitialCapital: 1000,
	}, Deps{
		Repo:   repo,
		Source: stubSource{},
		Now:    func() int64 { return cs[len(cs)-1].Time + 60 },
	})

	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].ForcedAtRunEnd)
	assert.Greater(t, result.Trades[0].ProfitPercent, 0.0)
}

func TestRun_InsufficientData(t *testing.T) {
	cs := buildCandles([]float64{100, 101, 102})
	repo := &memRepo{candles: cs}
	strat := &scriptedStrategy{script: make([]*strategy.Direction, len(cs))}

	_, err := Run(context.Background(), strat, "scripted", Params{
		Exchange:       "binance",
		Symbol:         "BTCUSDT",
		Period:         candle.Period1m,
		Hours:          1,
		InitialCapital: 1000,
	}, Deps{
		Repo:   repo,
		Source: stubSource{},
		Now:    func() int64 { return cs[len(cs)-1].Time + 60 },
	})

	require.Error(t, err)
}

func TestRun_AIRejectionSuppressesEntry(t *testing.T) {
	prices := []float64{100, 100, 110, 110, 110, 110, 110, 110, 110, 110, 110}
	cs := buildCandles(prices)
	repo := &memRepo{candles: cs}

	script := make([]*strategy.Direction, len(cs))
	script[1] = dir(strategy.Long)
	strat := &scriptedStrategy{script: script}

	result, err := Run(context.Background(), strat, "scripted", Params{
		Exchange:       "binance",
		Symbol:         "BTCUSDT",
		Period:         candle.Period1m,
		Hours:          1,
		InitialCapital: 1000,
		UseAI:          true,
	}, Deps{
		Repo:             repo,
		Source:           stubSource{},
		ValidatorBackend: rejectingValidator{},
		Now:              func() int64 { return cs[len(cs)-1].Time + 60 },
	})

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(ctx context.Context, packet validator.FeaturePacket) (validator.Result, error) {
	return validator.Result{Confirmed: false, Rationale: "no"}, nil
}

func TestMaxDrawdown(t *testing.T) {
	dd := maxDrawdown([]float64{5, -10, 3, -2})
	assert.InDelta(t, 10.0, dd, 0.001)
}

func TestSharpeRatio_ZeroStdDev(t *testing.T) {
	assert.Equal(t, 0.0, sharpeRatio([]float64{5, 5, 5}))
}
