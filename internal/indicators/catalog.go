package indicators

import (
	"fmt"

	"github.com/quantedge/stratcore/internal/candle"
)

// Kind enumerates the recognized indicator kinds. Unknown keys in an
// indicator's options are ignored with defaults applied; unknown kinds fail
// at registry lookup, not at compute time.
type Kind string

const (
	KindCandles           Kind = "candles" // pass-through: close price only
	KindRSI               Kind = "rsi"
	KindMACD              Kind = "macd"
	KindEMA               Kind = "ema"
	KindSMA               Kind = "sma"
	KindBollingerBands    Kind = "bollinger_bands"
	KindOBV               Kind = "obv"
	KindADX               Kind = "adx"
	KindCCI               Kind = "cci"
	KindMFI               Kind = "mfi"
	KindStochastic        Kind = "stochastic"
	KindATR               Kind = "atr"
	KindROC               Kind = "roc"
	KindIchimoku          Kind = "ichimoku"
	KindParabolicSAR      Kind = "parabolic_sar"
	KindPivotPointsHL     Kind = "pivot_points_hl"
	KindAwesomeOscillator Kind = "awesome_oscillator"
)

// Definition is a tagged record {kind, options} declared by a strategy via
// define_indicators().
type Definition struct {
	Kind    Kind
	Options map[string]interface{}
}

// computeFunc is the pure function every indicator kind implements:
// compute(candles_asc, options) -> aligned_series. Implementations must
// never panic on the happy path and must return a series the same length as
// candles.
type computeFunc func(candles []candle.Candle, options map[string]interface{}) (Series, error)

var registry = map[Kind]computeFunc{}

// register is called from each indicator's init(), following the
// database/sql-driver style of self-registering implementations.
func register(kind Kind, fn computeFunc) {
	registry[kind] = fn
}

// Build resolves a Definition against candles_asc into an aligned
// IndicatorSeries. Deterministic: the same (kind, options, candles) always
// yields bit-identical output. Zero-length input returns an empty series
// for every registered kind.
func Build(def Definition, candles []candle.Candle) (Series, error) {
	fn, ok := registry[def.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown indicator kind %q", def.Kind)
	}
	if len(candles) == 0 {
		return Series{}, nil
	}
	series, err := fn(candles, def.Options)
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", def.Kind, err)
	}
	if len(series) != len(candles) {
		return nil, fmt.Errorf("indicator %s produced %d values for %d candles", def.Kind, len(series), len(candles))
	}
	return series, nil
}

// IsValid reports whether kind is a recognized indicator kind.
func IsValid(kind Kind) bool {
	_, ok := registry[kind]
	return ok
}

// Kinds lists every registered indicator kind, for introspection
// (BacktestResult.indicator_keys reporting and option-schema documentation).
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

func closePrices(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func highPrices(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func lowPrices(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

func volumes(candles []candle.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume // missing volume is represented as 0, never an error
	}
	return out
}
