package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindMFI, computeMFI)
}

// computeMFI: options.length (default 14). Money Flow Index: typical price
// weighted by volume, split into positive/negative flow by the direction of
// the typical price move, summed over the window into a money flow ratio.
func computeMFI(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 14)
	n := len(candles)
	if period < 1 || n < period+1 {
		return leftPad(n, nil), nil
	}

	typical := make([]float64, n)
	rawFlow := make([]float64, n)
	for i, c := range candles {
		typical[i] = (c.High + c.Low + c.Close) / 3
		rawFlow[i] = typical[i] * c.Volume
	}

	// posFlow/negFlow[j] corresponds to candle index j+1.
	posFlow := make([]float64, n-1)
	negFlow := make([]float64, n-1)
	for i := 1; i < n; i++ {
		j := i - 1
		switch {
		case typical[i] > typical[i-1]:
			posFlow[j] = rawFlow[i]
		case typical[i] < typical[i-1]:
			negFlow[j] = rawFlow[i]
		}
	}

	out := make([]float64, n-period)
	for i := range out {
		// window covers posFlow/negFlow[i : i+period], i.e. candle indices i+1..i+period.
		var posSum, negSum float64
		for k := i; k < i+period; k++ {
			posSum += posFlow[k]
			negSum += negFlow[k]
		}
		ratio, ok := safeDiv(posSum, negSum)
		if !ok {
			out[i] = 100
			continue
		}
		out[i] = 100 - (100 / (1 + ratio))
	}
	return leftPad(n-len(out), out), nil
}
