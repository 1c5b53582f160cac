package indicators

import (
	"math"

	"github.com/quantedge/stratcore/internal/candle"
)

func init() {
	register(KindATR, computeATR)
}

// computeATR: options.length (default 14). Average True Range, Wilder's
// smoothing applied to True Range only (no directional movement).
func computeATR(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 14)
	n := len(candles)
	if period < 1 || n < period+1 {
		return leftPad(n, nil), nil
	}
	high := highPrices(candles)
	low := lowPrices(candles)
	close := closePrices(candles)

	rawTR := make([]float64, n-1)
	for i := 1; i < n; i++ {
		rawTR[i-1] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}
	atrValues := wilderSmooth(rawTR, period)
	return leftPad(n-len(atrValues), atrValues), nil
}
