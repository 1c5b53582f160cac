package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantedge/stratcore/internal/candle"
)

func rampCandles(n int) []candle.Candle {
	out := make([]candle.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 1
		out[i] = candle.Candle{
			Time:   int64(i) * 60,
			Open:   price - 1,
			High:   price + 0.5,
			Low:    price - 1.5,
			Close:  price,
			Volume: 10 + float64(i),
		}
	}
	return out
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := Build(Definition{Kind: "not_a_kind"}, rampCandles(5))
	assert.Error(t, err)
}

func TestBuild_EmptyCandles(t *testing.T) {
	series, err := Build(Definition{Kind: KindRSI}, nil)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestBuild_OutputAlignedToInputLength(t *testing.T) {
	candles := rampCandles(60)
	for _, kind := range Kinds() {
		series, err := Build(Definition{Kind: kind}, candles)
		require.NoError(t, err, "kind %s", kind)
		assert.Len(t, series, len(candles), "kind %s", kind)
	}
}

func TestComputeCandles_PassThroughNoWarmup(t *testing.T) {
	candles := rampCandles(5)
	series, err := Build(Definition{Kind: KindCandles}, candles)
	require.NoError(t, err)
	for i, v := range series {
		require.True(t, v.IsDefined())
		assert.Equal(t, candles[i].Close, v.Scalar())
	}
}

func TestComputeSMA_WarmupAndValue(t *testing.T) {
	candles := rampCandles(10)
	series, err := Build(Definition{Kind: KindSMA, Options: map[string]interface{}{"length": 3}}, candles)
	require.NoError(t, err)
	assert.False(t, series[0].IsDefined())
	assert.False(t, series[1].IsDefined())
	require.True(t, series[2].IsDefined())

	closes := closePrices(candles)
	expected := (closes[0] + closes[1] + closes[2]) / 3
	assert.InDelta(t, expected, series[2].Scalar(), 1e-9)
}

func TestComputeOBV_NoWarmup(t *testing.T) {
	candles := rampCandles(5)
	series, err := Build(Definition{Kind: KindOBV}, candles)
	require.NoError(t, err)
	for _, v := range series {
		assert.True(t, v.IsDefined())
	}
}

func TestComputeBollingerBands_RespectsConfigurableStdDev(t *testing.T) {
	candles := rampCandles(30)
	narrow, err := Build(Definition{Kind: KindBollingerBands, Options: map[string]interface{}{"length": 10, "stddev": 1.0}}, candles)
	require.NoError(t, err)
	wide, err := Build(Definition{Kind: KindBollingerBands, Options: map[string]interface{}{"length": 10, "stddev": 3.0}}, candles)
	require.NoError(t, err)

	idx := len(candles) - 1
	require.True(t, narrow[idx].IsDefined())
	require.True(t, wide[idx].IsDefined())
	narrowUpper, _ := narrow[idx].Field("upper")
	wideUpper, _ := wide[idx].Field("upper")
	assert.Greater(t, wideUpper, narrowUpper)
}

func TestComputeADX_WarmupLength(t *testing.T) {
	period := 14
	candles := rampCandles(50)
	series, err := Build(Definition{Kind: KindADX, Options: map[string]interface{}{"length": period}}, candles)
	require.NoError(t, err)

	warmup := 2*period - 1
	for i := 0; i < warmup; i++ {
		assert.False(t, series[i].IsDefined(), "index %d", i)
	}
	assert.True(t, series[warmup].IsDefined())
}

func TestComputeMACD_StructuredFields(t *testing.T) {
	candles := rampCandles(60)
	series, err := Build(Definition{Kind: KindMACD}, candles)
	require.NoError(t, err)
	idx, vals := series.DefinedOnly()
	require.NotEmpty(t, idx)
	last := vals[len(vals)-1]
	_, hasMACD := last.Field("macd")
	_, hasSignal := last.Field("signal")
	_, hasHist := last.Field("histogram")
	assert.True(t, hasMACD)
	assert.True(t, hasSignal)
	assert.True(t, hasHist)
}

func TestComputeStochastic_BoundedRange(t *testing.T) {
	candles := rampCandles(40)
	series, err := Build(Definition{Kind: KindStochastic}, candles)
	require.NoError(t, err)
	for _, v := range series {
		if !v.IsDefined() {
			continue
		}
		k, ok := v.Field("k")
		require.True(t, ok)
		assert.GreaterOrEqual(t, k, 0.0)
		assert.LessOrEqual(t, k, 100.0)
	}
}

func TestComputeParabolicSAR_FirstCandleUndefined(t *testing.T) {
	candles := rampCandles(20)
	series, err := Build(Definition{Kind: KindParabolicSAR}, candles)
	require.NoError(t, err)
	assert.False(t, series[0].IsDefined())
	assert.True(t, series[1].IsDefined())
}

func TestComputePivotPointsHL_EdgesUndefined(t *testing.T) {
	candles := rampCandles(20)
	series, err := Build(Definition{Kind: KindPivotPointsHL, Options: map[string]interface{}{"left_bars": 3, "right_bars": 3}}, candles)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.False(t, series[i].IsDefined())
	}
	for i := len(candles) - 3; i < len(candles); i++ {
		assert.False(t, series[i].IsDefined())
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(KindRSI))
	assert.False(t, IsValid(Kind("bogus")))
}
