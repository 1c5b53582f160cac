package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindAwesomeOscillator, computeAwesomeOscillator)
}

// computeAwesomeOscillator: options.fast_length (default 5), options.slow_length
// (default 34). Difference between a fast and slow SMA of the median price
// (high+low)/2, Bill Williams' momentum measure.
func computeAwesomeOscillator(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	fast := extractInt(options, "fast_length", 5)
	slow := extractInt(options, "slow_length", 34)
	n := len(candles)
	high := highPrices(candles)
	low := lowPrices(candles)

	median := make([]float64, n)
	for i := range candles {
		median[i] = (high[i] + low[i]) / 2
	}

	fastSMA := rollingSMA(median, fast)
	slowSMA := rollingSMA(median, slow)
	if len(slowSMA) == 0 {
		return leftPad(n, nil), nil
	}
	// fastSMA is warmed up earlier (fast <= slow assumed); align both to
	// the slow series' start, which is the later of the two warm-ups.
	fastOffset := len(fastSMA) - len(slowSMA)
	out := make([]float64, len(slowSMA))
	for i := range out {
		out[i] = fastSMA[i+fastOffset] - slowSMA[i]
	}
	return leftPad(n-len(out), out), nil
}
