package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindPivotPointsHL, computePivotPointsHL)
}

// computePivotPointsHL: options.left_bars (default 5), options.right_bars
// (default 5). A candle is a pivot high when its high is the maximum over
// the left+right lookback/lookahead window, and a pivot low symmetrically.
// Indices within left_bars of the start or right_bars of the end can never
// see a full window and are Undefined. Structured output {high?, low?}: an index with neither
// pivot present is Undefined, not an empty record.
func computePivotPointsHL(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	left := extractInt(options, "left_bars", 5)
	right := extractInt(options, "right_bars", 5)
	n := len(candles)
	high := highPrices(candles)
	low := lowPrices(candles)

	out := make(Series, n)
	for i := 0; i < n; i++ {
		if i-left < 0 || i+right >= n {
			out[i] = Undefined
			continue
		}
		isPivotHigh := true
		isPivotLow := true
		for j := i - left; j <= i+right; j++ {
			if j == i {
				continue
			}
			if high[j] >= high[i] {
				isPivotHigh = false
			}
			if low[j] <= low[i] {
				isPivotLow = false
			}
		}
		record := map[string]float64{}
		any := false
		if isPivotHigh {
			record["high"] = high[i]
			any = true
		}
		if isPivotLow {
			record["low"] = low[i]
			any = true
		}
		if any {
			out[i] = DefinedRecord(record)
		} else {
			out[i] = Undefined
		}
	}
	return out, nil
}
