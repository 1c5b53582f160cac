package indicators

import (
	"math"

	"github.com/quantedge/stratcore/internal/candle"
)

func init() {
	register(KindADX, computeADX)
}

// computeADX: options.length (default 14). ADX has no primitive in
// cinar/indicator/v2, so it is built from True Range and directional
// movement smoothed with Wilder's technique, same as the teacher's manual
// implementation, but producing a full warm-up-aligned series rather than a
// single latest value.
func computeADX(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 14)
	n := len(candles)
	if period < 1 || n < 2*period {
		return leftPad(n, nil), nil
	}
	high := highPrices(candles)
	low := lowPrices(candles)
	close := closePrices(candles)

	// rawTR/rawPlusDM/rawMinusDM[j] corresponds to candle index j+1.
	rawTR := make([]float64, n-1)
	rawPlusDM := make([]float64, n-1)
	rawMinusDM := make([]float64, n-1)
	for i := 1; i < n; i++ {
		j := i - 1
		rawTR[j] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if upMove > downMove && upMove > 0 {
			rawPlusDM[j] = upMove
		}
		if downMove > upMove && downMove > 0 {
			rawMinusDM[j] = downMove
		}
	}

	smoothTR := wilderSmooth(rawTR, period)
	smoothPlusDM := wilderSmooth(rawPlusDM, period)
	smoothMinusDM := wilderSmooth(rawMinusDM, period)
	// smoothTR[k] corresponds to candle index k+period.

	dx := make([]float64, len(smoothTR))
	for k := range smoothTR {
		plusDI, ok1 := safeDiv(100*smoothPlusDM[k], smoothTR[k])
		minusDI, ok2 := safeDiv(100*smoothMinusDM[k], smoothTR[k])
		if !ok1 || !ok2 {
			dx[k] = math.NaN()
			continue
		}
		diSum := plusDI + minusDI
		diff, ok := safeDiv(100*math.Abs(plusDI-minusDI), diSum)
		if !ok {
			dx[k] = math.NaN()
			continue
		}
		dx[k] = diff
	}

	adxValues := wilderSmooth(dx, period)
	// adxValues[m] corresponds to candle index m+period+period-1 = m+2*period-1.
	return leftPad(n-len(adxValues), adxValues), nil
}
