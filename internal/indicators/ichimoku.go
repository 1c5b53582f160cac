package indicators

import "github.com/quantedge/stratcore/internal/candle"

func init() {
	register(KindIchimoku, computeIchimoku)
}

// computeIchimoku: options.conversion_length (9), base_length (26),
// span_b_length (52), displacement (26). Structured output with whichever of
// {conversion, base, span_a, span_b, chikou} are computable at that index;
// an index with none computable is Undefined. Span A/B are keyed at the
// index they are plotted at (displaced forward by `displacement`), matching
// the way the lines are drawn on an Ichimoku chart rather than the index
// they were derived from.
func computeIchimoku(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	convLen := extractInt(options, "conversion_length", 9)
	baseLen := extractInt(options, "base_length", 26)
	spanBLen := extractInt(options, "span_b_length", 52)
	displacement := extractInt(options, "displacement", 26)

	n := len(candles)
	high := highPrices(candles)
	low := lowPrices(candles)
	close := closePrices(candles)

	midpoint := func(window, i int) (float64, bool) {
		if i < window-1 {
			return 0, false
		}
		hi, lo := high[i], low[i]
		for j := i - window + 1; j <= i; j++ {
			if high[j] > hi {
				hi = high[j]
			}
			if low[j] < lo {
				lo = low[j]
			}
		}
		return (hi + lo) / 2, true
	}

	conversion := make([]float64, n)
	conversionOK := make([]bool, n)
	base := make([]float64, n)
	baseOK := make([]bool, n)
	spanBRaw := make([]float64, n)
	spanBOK := make([]bool, n)
	for i := 0; i < n; i++ {
		conversion[i], conversionOK[i] = midpoint(convLen, i)
		base[i], baseOK[i] = midpoint(baseLen, i)
		spanBRaw[i], spanBOK[i] = midpoint(spanBLen, i)
	}

	out := make(Series, n)
	for i := 0; i < n; i++ {
		record := map[string]float64{}
		any := false
		if conversionOK[i] {
			record["conversion"] = conversion[i]
			any = true
		}
		if baseOK[i] {
			record["base"] = base[i]
			any = true
		}
		src := i - displacement
		if src >= 0 && conversionOK[src] && baseOK[src] {
			record["span_a"] = (conversion[src] + base[src]) / 2
			any = true
		}
		if src >= 0 && spanBOK[src] {
			record["span_b"] = spanBRaw[src]
			any = true
		}
		if lag := i + displacement; lag < n {
			record["chikou"] = close[lag]
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
