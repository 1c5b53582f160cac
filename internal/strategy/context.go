package strategy

import (
	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/indicators"
)

// EvaluationContext is the read-only view a strategy sees at one candle
// index: the candle itself, the price history up to and including it, the
// declared indicator series (also clipped to the same index), and the
// run's current last_signal. The Executor builds a fresh context per
// candle; a strategy must not mutate it and must produce the same Signal
// output given the same context (idempotent with respect to ctx).
type EvaluationContext struct {
	index      int
	candles    []candle.Candle
	series     map[string]indicators.Series
	lastSignal Direction
	hasLast    bool
}

// NewEvaluationContext builds the view for one candle index. Called by the
// executor once per candle; candles and series must already be the full
// run-length vectors (the context itself enforces the ≤index visibility
// rule, callers do not need to pre-slice).
func NewEvaluationContext(index int, candles []candle.Candle, series map[string]indicators.Series, lastSignal Direction, hasLast bool) *EvaluationContext {
	return &EvaluationContext{index: index, candles: candles, series: series, lastSignal: lastSignal, hasLast: hasLast}
}

// Index is the current candle's position in the full candle vector.
func (c *EvaluationContext) Index() int { return c.index }

// Candle returns the current candle.
func (c *EvaluationContext) Candle() candle.Candle { return c.candles[c.index] }

// Candles returns every candle from index 0 through the current index,
// inclusive. The strategy never sees candles beyond the current index.
func (c *EvaluationContext) Candles() []candle.Candle { return c.candles[:c.index+1] }

// ClosePrices returns the close price series through the current index.
func (c *EvaluationContext) ClosePrices() []float64 {
	out := make([]float64, c.index+1)
	for i := 0; i <= c.index; i++ {
		out[i] = c.candles[i].Close
	}
	return out
}

// Indicator returns the named indicator's value at the current index. ok is
// false if the name was never declared via DefineIndicators.
func (c *EvaluationContext) Indicator(name string) (indicators.Value, bool) {
	s, ok := c.series[name]
	if !ok {
		return indicators.Undefined, false
	}
	return s[c.index], true
}

// IndicatorWindow returns up to lookback values of the named indicator
// ending at the current index, oldest first. Clipped at the start of the
// series; never reaches past the current index.
func (c *EvaluationContext) IndicatorWindow(name string, lookback int) ([]indicators.Value, bool) {
	s, ok := c.series[name]
	if !ok {
		return nil, false
	}
	start := c.index - lookback + 1
	if start < 0 {
		start = 0
	}
	return s[start : c.index+1], true
}

// LastSignal reports the most recent non-close entry direction since the
// last close, if any.
func (c *EvaluationContext) LastSignal() (Direction, bool) {
	return c.lastSignal, c.hasLast
}
