package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindCandles, computeCandles)
}

// computeCandles is the pass-through kind: every candle's close price,
// defined from index 0 (no warm-up).
func computeCandles(candles []candle.Candle, _ map[string]interface{}) (Series, error) {
	out := make(Series, len(candles))
	for i, c := range candles {
		out[i] = Defined(c.Close)
	}
	return out, nil
}
