package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getValidConfig returns a valid configuration for testing
func getValidConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "stratcore",
			Environment: "development",
			LogLevel:    "info",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "secure_password",
			Database: "stratcore",
			SSLMode:  "disable",
			PoolSize: 10,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Vault: VaultSection{
			Enabled: false,
		},
		Exchanges: map[string]ExchangeConfig{
			"binance": {
				APIKey:    "test-key",
				SecretKey: "test-secret",
				Testnet:   true,
			},
		},
		Scheduler: SchedulerConfig{
			TickIntervalSeconds: 60,
			BoundaryLagSeconds:  8,
		},
		Jobs: JobsConfig{
			MaxConcurrentJobs: 1,
			TTLHours:          6,
		},
		Validator: ValidatorConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Port:          9100,
			EnableMetrics: true,
		},
	}
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	cfg := getValidConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingAppName(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Name = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.name")
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Environment = "staging-ish"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.environment")
}

func TestValidate_MissingDatabaseHost(t *testing.T) {
	cfg := getValidConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestValidate_DatabasePasswordRequiredOutsideDevelopment(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Environment = "staging"
	cfg.Database.Password = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")
}

func TestValidate_NoExchangesConfigured(t *testing.T) {
	cfg := getValidConfig()
	cfg.Exchanges = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchanges")
}

func TestValidate_SchedulerTickIntervalMustBePositive(t *testing.T) {
	cfg := getValidConfig()
	cfg.Scheduler.TickIntervalSeconds = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.tick_interval_seconds")
}

func TestValidate_JobsMaxConcurrentMustBePositive(t *testing.T) {
	cfg := getValidConfig()
	cfg.Jobs.MaxConcurrentJobs = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs.max_concurrent_jobs")
}

func TestValidate_ValidatorEndpointRequiredWhenEnabled(t *testing.T) {
	cfg := getValidConfig()
	cfg.Validator.Enabled = true
	cfg.Validator.Endpoint = ""
	cfg.Validator.TimeoutSeconds = 10

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validator.endpoint")
}

func TestValidate_ProductionRejectsTestnet(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Environment = "production"
	cfg.Database.SSLMode = "require"
	cfg.Database.Password = "S3cur3!Passw0rd#2026"
	cfg.Exchanges["binance"] = ExchangeConfig{
		APIKey:    "AKIAPRODUCTIONKEY123456",
		SecretKey: "SecretProductionKey!2026#XYZ",
		Testnet:   true,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "testnet")
}

func TestValidate_VaultAddressRequiredWhenEnabled(t *testing.T) {
	cfg := getValidConfig()
	cfg.Vault.Enabled = true
	cfg.Vault.Address = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault.address")
}

func TestValidate_ProductionRequiresSSL(t *testing.T) {
	cfg := getValidConfig()
	cfg.App.Environment = "production"
	cfg.Database.Password = "S3cur3!Passw0rd#2026"
	cfg.Exchanges["binance"] = ExchangeConfig{
		APIKey:    "AKIAPRODUCTIONKEY123456",
		SecretKey: "SecretProductionKey!2026#XYZ",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.ssl_mode")
}
