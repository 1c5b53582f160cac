package indicators

import (
	"math"

	"github.com/quantedge/stratcore/internal/candle"
)

func init() {
	register(KindCCI, computeCCI)
}

// computeCCI: options.length (default 20). Commodity Channel Index:
// (typicalPrice - SMA(typicalPrice)) / (0.015 * meanAbsoluteDeviation).
func computeCCI(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 20)
	n := len(candles)
	typical := make([]float64, n)
	for i, c := range candles {
		typical[i] = (c.High + c.Low + c.Close) / 3
	}
	means := rollingSMA(typical, period)
	if len(means) == 0 {
		return leftPad(n, nil), nil
	}
	out := make([]float64, len(means))
	for i, mean := range means {
		window := typical[i : i+period]
		var madSum float64
		for _, v := range window {
			madSum += absF(v - mean)
		}
		mad := madSum / float64(period)
		v, ok := safeDiv(typical[i+period-1]-mean, 0.015*mad)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return leftPad(n-len(out), out), nil
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
