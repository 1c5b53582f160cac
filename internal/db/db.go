// Package db wraps the PostgreSQL connection pool this core persists
// candle history and back-test results through, grounded on the teacher's
// internal/db.DB: Vault-then-env credential resolution, a pooled pgx
// connection, and circuit-breaker-guarded execution.
package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/quantedge/stratcore/internal/resilience"
	"github.com/quantedge/stratcore/internal/vault"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	pool           *pgxpool.Pool
	circuitBreaker *resilience.Manager
}

// New creates a connection pool for databaseURL, falling back to the
// DATABASE_URL environment variable when empty.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set and no connection string provided")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("database connection pool created")

	return &DB{
		pool:           pool,
		circuitBreaker: resilience.NewManager(),
	}, nil
}

// NewFromVault resolves the connection string from Vault first, falling
// back to the DATABASE_URL environment variable -- the teacher's
// connection-time credential resolution path, independent of whatever the
// config package already did at Load() time.
func NewFromVault(ctx context.Context) (*DB, error) {
	var databaseURL string

	if vaultClient, err := vault.NewClientFromEnv(); err == nil {
		if dbConfig, err := vaultClient.GetDatabaseConfig(ctx); err == nil {
			databaseURL = dbConfig.ConnectionString()
			log.Info().Msg("database credentials loaded from vault")
		} else {
			log.Debug().Err(err).Msg("could not load database config from vault, falling back to env")
		}
	}

	return New(ctx, databaseURL)
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
		log.Info().Msg("database connection pool closed")
	}
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}
	return db.pool.Ping(ctx)
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// SetPool sets the connection pool directly. Used by tests.
func (db *DB) SetPool(pool *pgxpool.Pool) {
	db.pool = pool
}

// ExecuteWithCircuitBreaker runs operation through the database circuit
// breaker, preventing a struggling database from piling up callers behind
// slow queries.
func (db *DB) ExecuteWithCircuitBreaker(operation func() (interface{}, error)) (interface{}, error) {
	if db.circuitBreaker == nil {
		return operation()
	}

	result, err := db.circuitBreaker.Database().Execute(operation)
	if err != nil {
		if err == gobreaker.ErrOpenState {
			db.circuitBreaker.Metrics().RecordRequest("database", false)
			return nil, fmt.Errorf("database circuit breaker is open, service unavailable")
		}
		db.circuitBreaker.Metrics().RecordRequest("database", false)
		return nil, err
	}

	db.circuitBreaker.Metrics().RecordRequest("database", true)
	return result, nil
}

// GetCircuitBreaker returns the circuit breaker manager backing this DB, so
// other components (e.g. the exchange adapter) can share it.
func (db *DB) GetCircuitBreaker() *resilience.Manager {
	return db.circuitBreaker
}

// SetCircuitBreaker installs a shared circuit breaker manager.
func (db *DB) SetCircuitBreaker(cb *resilience.Manager) {
	db.circuitBreaker = cb
}
