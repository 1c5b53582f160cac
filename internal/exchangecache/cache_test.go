package exchangecache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetPublic_CachesAcrossCalls(t *testing.T) {
	c := New()
	calls := 0
	build := func() (interface{}, error) {
		calls++
		return "client", nil
	}

	first, err := c.GetPublic("binance", build)
	require.NoError(t, err)
	second, err := c.GetPublic("binance", build)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCache_GetPublic_RebuildsAfterExpiry(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }
	calls := 0
	build := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	_, err := c.GetPublic("binance", build)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = c.GetPublic("binance", build)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestCache_InvalidateAuthed(t *testing.T) {
	c := New()
	calls := 0
	build := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	_, _ = c.GetAuthed("profile-1", build)
	c.InvalidateAuthed("profile-1")
	_, _ = c.GetAuthed("profile-1", build)

	assert.Equal(t, 2, calls)
}

func TestCache_BuildErrorIsNotCached(t *testing.T) {
	c := New()
	_, err := c.GetPublic("binance", func() (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)

	calls := 0
	_, err = c.GetPublic("binance", func() (interface{}, error) {
		calls++
		return "client", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
