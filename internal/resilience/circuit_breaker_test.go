package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	manager := NewManager()

	require.NotNil(t, manager)
	require.NotNil(t, manager.exchange)
	require.NotNil(t, manager.validator)
	require.NotNil(t, manager.database)
	require.NotNil(t, manager.metrics)

	assert.Equal(t, gobreaker.StateClosed, manager.Exchange().State())
	assert.Equal(t, gobreaker.StateClosed, manager.Validator().State())
	assert.Equal(t, gobreaker.StateClosed, manager.Database().State())
}

func TestManager_Exchange(t *testing.T) {
	t.Run("successful requests keep circuit closed", func(t *testing.T) {
		manager := NewManager()
		for i := 0; i < 10; i++ {
			_, err := manager.Exchange().Execute(func() (interface{}, error) {
				return "success", nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, gobreaker.StateClosed, manager.Exchange().State())
	})

	t.Run("circuit opens after threshold failures", func(t *testing.T) {
		manager := NewManager()
		for i := 0; i < 5; i++ {
			manager.Exchange().Execute(func() (interface{}, error) {
				return nil, errors.New("exchange error")
			})
		}
		assert.Equal(t, gobreaker.StateOpen, manager.Exchange().State())

		_, err := manager.Exchange().Execute(func() (interface{}, error) {
			return "should not execute", nil
		})
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	})
}

func TestManager_Validator(t *testing.T) {
	manager := NewManager()

	for i := 0; i < 3; i++ {
		manager.Validator().Execute(func() (interface{}, error) {
			return nil, errors.New("validator timeout")
		})
	}

	assert.Equal(t, gobreaker.StateOpen, manager.Validator().State())

	_, err := manager.Validator().Execute(func() (interface{}, error) {
		return "should not execute", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestManager_Database(t *testing.T) {
	manager := NewManager()

	for i := 0; i < 10; i++ {
		manager.Database().Execute(func() (interface{}, error) {
			return nil, errors.New("database connection failed")
		})
	}

	assert.Equal(t, gobreaker.StateOpen, manager.Database().State())

	_, err := manager.Database().Execute(func() (interface{}, error) {
		return "should not execute", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestMetrics_RecordRequest(t *testing.T) {
	manager := NewManager()
	metrics := manager.Metrics()

	metrics.RecordRequest("exchange", true)
	metrics.RecordRequest("exchange", false)
	metrics.RecordRequest("validator", true)
	metrics.RecordRequest("database", false)
}

func TestNewPassthroughManager_NeverTrips(t *testing.T) {
	manager := NewPassthroughManager()

	for i := 0; i < 50; i++ {
		_, err := manager.Exchange().Execute(func() (interface{}, error) {
			return nil, errors.New("always fails")
		})
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, manager.Exchange().State())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		fallback time.Duration
		expected time.Duration
	}{
		{"5s", time.Second, 5 * time.Second},
		{"", 10 * time.Second, 10 * time.Second},
		{"not-a-duration", 15 * time.Second, 15 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseDuration(tt.input, tt.fallback))
	}
}
