package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindStochastic, computeStochastic)
}

// computeStochastic: options.k_length (default 14), options.d_length
// (default 3). %K measures close position within the rolling high/low
// range; %D is a simple moving average of %K. Structured output {k, d}.
func computeStochastic(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	kPeriod := extractInt(options, "k_length", 14)
	dPeriod := extractInt(options, "d_length", 3)
	n := len(candles)
	if kPeriod < 1 || n < kPeriod {
		return leftPad(n, nil), nil
	}
	high := highPrices(candles)
	low := lowPrices(candles)
	close := closePrices(candles)

	kValues := make([]float64, n-kPeriod+1)
	for i := range kValues {
		window := kPeriod
		hi := high[i]
		lo := low[i]
		for j := i; j < i+window; j++ {
			if high[j] > hi {
				hi = high[j]
			}
			if low[j] < lo {
				lo = low[j]
			}
		}
		v, ok := safeDiv(close[i+window-1]-lo, hi-lo)
		if !ok {
			kValues[i] = 50
			continue
		}
		kValues[i] = v * 100
	}

	dValues := rollingSMA(kValues, dPeriod)
	// dValues[m] corresponds to kValues index m+dPeriod-1.

	warmup := n - len(dValues)
	records := make([]map[string]float64, len(dValues))
	for m, d := range dValues {
		records[m] = map[string]float64{"k": kValues[m+dPeriod-1], "d": d}
	}
	return leftPadRecords(warmup, records), nil
}
