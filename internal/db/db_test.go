package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects using DATABASE_URL, skipping the test when it isn't
// set -- this core has no embedded test-container harness, so integration
// coverage is opt-in via environment.
func setupTestDB(t *testing.T) (*DB, func()) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("skipping database test: DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := New(ctx, url)
	if err != nil {
		t.Skipf("skipping database test: failed to connect: %v", err)
	}

	return database, database.Close
}

func TestNew(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NotNil(t, database)
	assert.NotNil(t, database.Pool())
}

func TestNew_NoURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := New(context.Background(), "")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NoError(t, database.Ping(context.Background()))
}

func TestHealth(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NoError(t, database.Health(context.Background()))
}

func TestExecuteWithCircuitBreaker_PassesThroughResult(t *testing.T) {
	database := &DB{}
	database.SetCircuitBreaker(nil)

	result, err := database.ExecuteWithCircuitBreaker(func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestExecuteWithCircuitBreaker_PropagatesFailure(t *testing.T) {
	database := &DB{}
	database.SetCircuitBreaker(nil)

	_, err := database.ExecuteWithCircuitBreaker(func() (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
}
