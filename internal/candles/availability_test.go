package candles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantedge/stratcore/internal/candle"
)

type memRepo struct {
	byKey map[int64]candle.Candle
}

func newMemRepo(seed []candle.Candle) *memRepo {
	r := &memRepo{byKey: map[int64]candle.Candle{}}
	for _, c := range seed {
		r.byKey[c.Time] = c
	}
	return r
}

func (r *memRepo) Query(_ context.Context, _, _ string, _ candle.Period, since, until int64) ([]candle.Candle, error) {
	var out []candle.Candle
	for t, c := range r.byKey {
		if t >= since && t < until {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) Save(_ context.Context, _, _ string, _ candle.Period, candles []candle.Candle) error {
	for _, c := range candles {
		r.byKey[c.Time] = c
	}
	return nil
}

type fakeSource struct {
	batches [][]candle.Candle
	calls   int
}

func (f *fakeSource) FetchOHLCV(_ context.Context, _, _ string, _ candle.Period, _ int64, _ int) ([]candle.Candle, error) {
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.calls]
	f.calls++
	return b, nil
}

func makeCandles(startTime, stepSeconds int64, n int) []candle.Candle {
	out := make([]candle.Candle, n)
	for i := 0; i < n; i++ {
		t := startTime + int64(i)*stepSeconds
		out[i] = candle.Candle{Time: t, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	}
	return out
}

func TestEnsureRange_SufficientPersistedSkipsFetch(t *testing.T) {
	seed := makeCandles(0, 60, 100)
	repo := newMemRepo(seed)
	source := &fakeSource{}

	out, err := EnsureRange(context.Background(), repo, source, "binance", "BTCUSDT", candle.Period1m, 0, 100*60)
	require.NoError(t, err)
	assert.Len(t, out, 100)
	assert.Equal(t, 0, source.calls)
}

func TestEnsureRange_InsufficientPersistedFetchesAndDropsLastOfEachBatch(t *testing.T) {
	repo := newMemRepo(nil)
	batch1 := makeCandles(0, 60, 500)
	source := &fakeSource{batches: [][]candle.Candle{batch1}}

	out, err := EnsureRange(context.Background(), repo, source, "binance", "BTCUSDT", candle.Period1m, 0, 500*60)
	require.NoError(t, err)
	// last candle of the only batch is dropped as still-forming
	assert.Len(t, out, 499)
	assert.Equal(t, 1, source.calls)
}

func TestFetchRecent_DropsLastCandle(t *testing.T) {
	bars := makeCandles(0, 60, 501)
	source := &fakeSource{batches: [][]candle.Candle{bars}}

	out, err := FetchRecent(context.Background(), source, "binance", "BTCUSDT", candle.Period1m)
	require.NoError(t, err)
	assert.Len(t, out, 500)
}

func TestFetchRecent_EmptySourceReturnsEmpty(t *testing.T) {
	source := &fakeSource{}
	out, err := FetchRecent(context.Background(), source, "binance", "BTCUSDT", candle.Period1m)
	require.NoError(t, err)
	assert.Empty(t, out)
}
