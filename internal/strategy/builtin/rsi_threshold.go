// Package builtin provides a small set of concrete strategies registered
// against internal/strategy's registry, grounded on the RSI/MACD
// confidence-scoring thresholds the teacher's technical-analysis agent used
// (cmd/agents/technical-agent), reduced from a multi-agent belief vote down
// to a single strategy's long/short/close decision.
package builtin

import (
	"context"

	"github.com/quantedge/stratcore/internal/indicators"
	"github.com/quantedge/stratcore/internal/strategy"
)

func init() {
	strategy.Register("rsi_threshold", newRSIThreshold)
}

// rsiThresholdDefaults mirrors the teacher's 30/70 oversold/overbought bands.
var rsiThresholdDefaults = map[string]interface{}{
	"length":    14,
	"oversold":  30.0,
	"overbought": 70.0,
}

type rsiThreshold struct {
	options map[string]interface{}
}

func newRSIThreshold(options map[string]interface{}) (strategy.Strategy, error) {
	return &rsiThreshold{options: strategy.MergeOptions(rsiThresholdDefaults, options)}, nil
}

func (s *rsiThreshold) Description() string {
	return "Enters long when RSI crosses up from oversold, short when it crosses down from overbought, closes on the opposite extreme."
}

func (s *rsiThreshold) DefaultOptions() map[string]interface{} {
	return s.options
}

func (s *rsiThreshold) DefineIndicators() map[string]indicators.Definition {
	length, _ := s.options["length"].(int)
	return map[string]indicators.Definition{
		"rsi": {Kind: indicators.KindRSI, Options: map[string]interface{}{"length": length}},
	}
}

func (s *rsiThreshold) Execute(_ context.Context, ctx *strategy.EvaluationContext, signal *strategy.Signal) error {
	oversold := s.options["oversold"].(float64)
	overbought := s.options["overbought"].(float64)

	window, ok := ctx.IndicatorWindow("rsi", 2)
	if !ok || len(window) < 2 {
		return nil
	}
	prev, cur := window[0], window[1]
	if !prev.IsDefined() || !cur.IsDefined() {
		return nil
	}
	prevRSI, curRSI := prev.Scalar(), cur.Scalar()

	signal.Debug("rsi", curRSI)

	switch {
	case prevRSI <= oversold && curRSI > oversold:
		signal.Long()
	case prevRSI >= overbought && curRSI < overbought:
		signal.Short()
	case curRSI >= overbought:
		if last, ok := ctx.LastSignal(); ok && last == strategy.Long {
			signal.CloseSignal()
		}
	case curRSI <= oversold:
		if last, ok := ctx.LastSignal(); ok && last == strategy.Short {
			signal.CloseSignal()
		}
	}
	return nil
}
