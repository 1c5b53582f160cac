package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindSMA, computeSMA)
}

// computeSMA: options.length (default 20). Not available as a standalone
// primitive in cinar/indicator/v2's public API surface observed elsewhere in
// this catalog, so implemented directly — a plain rolling mean needs no
// third-party help.
func computeSMA(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 20)
	prices := closePrices(candles)
	values := rollingSMA(prices, period)
	return leftPad(len(prices)-len(values), values), nil
}
