package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindROC, computeROC)
}

// computeROC: options.length (default 12). Rate of Change, the percentage
// price change between the current close and the close n candles back.
func computeROC(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 12)
	prices := closePrices(candles)
	n := len(prices)
	if period < 1 || n < period+1 {
		return leftPad(n, nil), nil
	}
	out := make([]float64, n-period)
	for i := range out {
		prev := prices[i]
		cur := prices[i+period]
		v, ok := safeDiv(cur-prev, prev)
		if !ok {
			out[i] = 0
			continue
		}
		out[i] = v * 100
	}
	return leftPad(n-len(out), out), nil
}
