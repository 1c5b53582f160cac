package builtin

import (
	"context"

	"github.com/quantedge/stratcore/internal/indicators"
	"github.com/quantedge/stratcore/internal/strategy"
)

func init() {
	strategy.Register("macd_crossover", newMACDCrossover)
}

var macdCrossoverDefaults = map[string]interface{}{
	"fast_length":   12,
	"slow_length":   26,
	"signal_length": 9,
}

type macdCrossover struct {
	options map[string]interface{}
}

func newMACDCrossover(options map[string]interface{}) (strategy.Strategy, error) {
	return &macdCrossover{options: strategy.MergeOptions(macdCrossoverDefaults, options)}, nil
}

func (s *macdCrossover) Description() string {
	return "Enters long on a bullish MACD/signal crossover, short on a bearish crossover, closes when the histogram flips against the open side."
}

func (s *macdCrossover) DefaultOptions() map[string]interface{} {
	return s.options
}

func (s *macdCrossover) DefineIndicators() map[string]indicators.Definition {
	return map[string]indicators.Definition{
		"macd": {Kind: indicators.KindMACD, Options: s.options},
	}
}

func (s *macdCrossover) Execute(_ context.Context, ctx *strategy.EvaluationContext, signal *strategy.Signal) error {
	window, ok := ctx.IndicatorWindow("macd", 2)
	if !ok || len(window) < 2 {
		return nil
	}
	prev, cur := window[0], window[1]
	if !prev.IsDefined() || !cur.IsDefined() {
		return nil
	}
	prevHist, _ := prev.Field("histogram")
	curHist, _ := cur.Field("histogram")
	signal.Debug("macd_histogram", curHist)

	switch {
	case prevHist <= 0 && curHist > 0:
		signal.Long()
	case prevHist >= 0 && curHist < 0:
		signal.Short()
	}

	if last, ok := ctx.LastSignal(); ok {
		if last == strategy.Long && curHist < 0 {
			signal.CloseSignal()
		}
		if last == strategy.Short && curHist > 0 {
			signal.CloseSignal()
		}
	}
	return nil
}
