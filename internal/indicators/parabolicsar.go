package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindParabolicSAR, computeParabolicSAR)
}

// computeParabolicSAR: options.step (default 0.02), options.max (default
// 0.2). Classic Wilder trailing-stop algorithm: an acceleration factor grows
// toward max as new extreme points are made, and the trend flips when price
// crosses the stop. The first candle has no prior trend to extend, so it is
// Undefined; the trend starting direction is seeded from the second candle.
func computeParabolicSAR(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	step := extractFloat(options, "step", 0.02)
	maxAF := extractFloat(options, "max", 0.2)
	n := len(candles)
	if n < 2 {
		return leftPad(n, nil), nil
	}
	high := highPrices(candles)
	low := lowPrices(candles)

	out := make([]float64, n)
	uptrend := high[1] >= high[0]
	af := step
	var sar, ep float64
	if uptrend {
		sar = low[0]
		ep = high[1]
	} else {
		sar = high[0]
		ep = low[1]
	}
	out[1] = sar

	for i := 2; i < n; i++ {
		prevSAR := sar
		sar = prevSAR + af*(ep-prevSAR)

		if uptrend {
			if sar > low[i-1] {
				sar = low[i-1]
			}
			if sar > low[i-2] {
				sar = low[i-2]
			}
			if low[i] < sar {
				uptrend = false
				sar = ep
				ep = low[i]
				af = step
			} else {
				if high[i] > ep {
					ep = high[i]
					af = minF(af+step, maxAF)
				}
			}
		} else {
			if sar < high[i-1] {
				sar = high[i-1]
			}
			if sar < high[i-2] {
				sar = high[i-2]
			}
			if high[i] > sar {
				uptrend = true
				sar = ep
				ep = high[i]
				af = step
			} else {
				if low[i] < ep {
					ep = low[i]
					af = minF(af+step, maxAF)
				}
			}
		}
		out[i] = sar
	}

	return leftPad(1, out[1:]), nil
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
