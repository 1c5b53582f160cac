package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindBollingerBands, computeBollingerBands)
}

// computeBollingerBands: options.length (default 20), options.stddev
// (default 2.0). cinar/indicator/v2's BollingerBands primitive hard-codes a
// 2-stddev band width, which cannot satisfy a configurable stddev option, so
// this is a direct rolling-mean/rolling-stddev implementation instead.
// Structured output {upper, middle, lower, width}; width is expressed as a
// percentage of the middle band.
func computeBollingerBands(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 20)
	k := extractFloat(options, "stddev", 2.0)
	prices := closePrices(candles)

	means := rollingSMA(prices, period)
	stddevs := rollingStdDev(prices, period, means)

	records := make([]map[string]float64, len(means))
	for i, mid := range means {
		sd := stddevs[i]
		upper := mid + k*sd
		lower := mid - k*sd
		width := 0.0
		if mid != 0 {
			width = (upper - lower) / mid * 100
		}
		records[i] = map[string]float64{"upper": upper, "middle": mid, "lower": lower, "width": width}
	}
	return leftPadRecords(len(prices)-len(records), records), nil
}
