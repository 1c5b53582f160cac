package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindOBV, computeOBV)
}

// computeOBV: On-Balance Volume, a running total with no warm-up (defined
// from index 0). Missing volume is treated as 0 per the catalog-wide rule.
func computeOBV(candles []candle.Candle, _ map[string]interface{}) (Series, error) {
	n := len(candles)
	out := make(Series, n)
	if n == 0 {
		return out, nil
	}
	running := candles[0].Volume
	out[0] = Defined(running)
	for i := 1; i < n; i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			running += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			running -= candles[i].Volume
		}
		out[i] = Defined(running)
	}
	return out, nil
}
