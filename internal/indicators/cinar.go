package indicators

import (
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/quantedge/stratcore/internal/candle"
)

// toChan mirrors the teacher's slice-to-channel conversion ahead of a
// cinar/indicator/v2 Compute call.
func toChan(values []float64) chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

func fromChan(ch chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}

// cinar's indicators drop their warm-up prefix rather than padding it, so
// every adapter here left-pads the returned tail back up to the full candle
// count before handing the series back through Build.
func padTail(total int, tail []float64) Series {
	return leftPad(total-len(tail), tail)
}

func init() {
	register(KindRSI, computeRSI)
	register(KindMACD, computeMACD)
	register(KindEMA, computeEMA)
}

// computeRSI: options.length (default 14).
func computeRSI(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 14)
	prices := closePrices(candles)
	if period < 1 || period > len(prices) {
		return leftPad(len(prices), nil), nil
	}
	rsiChan := momentum.NewRsiWithPeriod[float64](period).Compute(toChan(prices))
	values := fromChan(rsiChan)
	return padTail(len(prices), values), nil
}

// computeMACD: options.fast_length/slow_length/signal_length (defaults 12/26/9).
// Structured output {macd, signal, histogram}.
func computeMACD(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	fast := extractInt(options, "fast_length", 12)
	slow := extractInt(options, "slow_length", 26)
	signal := extractInt(options, "signal_length", 9)
	prices := closePrices(candles)
	if fast < 1 || slow < 1 || signal < 1 || fast >= slow || len(prices) < slow+signal {
		return leftPad(len(prices), nil), nil
	}
	macdChan, signalChan := trend.NewMacdWithPeriod[float64](fast, slow, signal).Compute(toChan(prices))

	var macdValues, signalValues []float64
	for {
		m, mok := <-macdChan
		s, sok := <-signalChan
		if !mok || !sok {
			break
		}
		macdValues = append(macdValues, m)
		signalValues = append(signalValues, s)
	}

	records := make([]map[string]float64, len(macdValues))
	for i := range macdValues {
		histogram := macdValues[i] - signalValues[i]
		records[i] = map[string]float64{"macd": macdValues[i], "signal": signalValues[i], "histogram": histogram}
	}
	return leftPadRecords(len(prices)-len(records), records), nil
}

// computeEMA: options.length (required; no default — mirrors the teacher's
// "period is required for EMA" validation).
func computeEMA(candles []candle.Candle, options map[string]interface{}) (Series, error) {
	period := extractInt(options, "length", 0)
	prices := closePrices(candles)
	if period < 1 || period > len(prices) {
		return leftPad(len(prices), nil), nil
	}
	emaChan := trend.NewEmaWithPeriod[float64](period).Compute(toChan(prices))
	values := fromChan(emaChan)
	return padTail(len(prices), values), nil
}
