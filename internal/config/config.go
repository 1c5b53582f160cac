// Package config loads this core's configuration from a YAML file plus
// environment overrides, grounded on the teacher's internal/config.Load
// (viper.New -> SetConfigFile/AddConfigPath -> AutomaticEnv/SetEnvPrefix ->
// SetDefault* -> ReadInConfig -> Unmarshal) reduced to the sections this
// core actually owns: database, exchange credentials, the scheduler's tick
// behavior, the job service's concurrency/TTL, and the optional signal
// validator backend. Redis and NATS are carried as placeholders for
// internal/candles' optional cache layer and internal/notify's optional
// cross-process backend, even though neither is on this core's hot path.
// Trading-mode/risk/MCP/LLM-gateway sections in the teacher's config belong
// to components this spec scopes out and are dropped rather than carried
// as dead struct fields.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "STRATCORE"

// Config is the complete configuration surface for this core.
type Config struct {
	App       AppConfig                 `mapstructure:"app"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Redis     RedisConfig               `mapstructure:"redis"`
	NATS      NATSConfig                `mapstructure:"nats"`
	Vault     VaultSection              `mapstructure:"vault"`
	Exchanges map[string]ExchangeConfig `mapstructure:"exchanges"`
	Scheduler SchedulerConfig           `mapstructure:"scheduler"`
	Jobs      JobsConfig                `mapstructure:"jobs"`
	Validator ValidatorConfig           `mapstructure:"validator"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// GetDSN returns the PostgreSQL connection string.
func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode, c.PoolSize,
	)
}

// RedisConfig configures the optional candle cache. Unused directly by
// this core's scheduler/executor path; carried so internal/candles can
// layer a shared cache in front of the exchange-backed candle source
// without a config format change.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GetRedisAddr returns the Redis address in host:port form.
func (c RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig configures the optional cross-process notification backend
// internal/notify uses to broadcast signal events outside this process.
type NATSConfig struct {
	URL             string `mapstructure:"url"`
	EnableJetStream bool   `mapstructure:"enable_jetstream"`
}

// VaultSection configures HashiCorp Vault as the credential backend for
// internal/vault and internal/config/secrets.go, in place of plaintext
// Database/Exchanges values.
type VaultSection struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Mount   string `mapstructure:"mount"`
	Prefix  string `mapstructure:"prefix"`
}

// ExchangeConfig contains per-exchange API credentials, mirroring the
// teacher's ExchangeConfig but without the embedded fee schedule (this
// core's back-test engine has no commission model).
type ExchangeConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	Testnet   bool   `mapstructure:"testnet"`
}

// SchedulerConfig configures the bot scheduler's tick driver.
type SchedulerConfig struct {
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds"`
	BoundaryLagSeconds  int `mapstructure:"boundary_lag_seconds"`
}

// TickInterval returns the configured tick cadence.
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// BoundaryLag returns the configured post-boundary delay.
func (c SchedulerConfig) BoundaryLag() time.Duration {
	return time.Duration(c.BoundaryLagSeconds) * time.Second
}

// JobsConfig configures the back-test job service's queue and reaper.
type JobsConfig struct {
	MaxConcurrentJobs int     `mapstructure:"max_concurrent_jobs"`
	TTLHours          float64 `mapstructure:"ttl_hours"`
}

// ValidatorConfig configures the optional signal confirmation backend.
type ValidatorConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Endpoint       string `mapstructure:"endpoint"`
}

// Timeout returns the configured validator timeout.
func (c ValidatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Port          int  `mapstructure:"port"`
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from configPath (or ./configs/config.yaml,
// ./config.yaml if empty), applying STRATCORE_-prefixed environment
// overrides on top.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stratcore")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "stratcore")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enable_jetstream", false)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.mount", "secret")
	v.SetDefault("vault.prefix", "stratcore")

	v.SetDefault("scheduler.tick_interval_seconds", 60)
	v.SetDefault("scheduler.boundary_lag_seconds", 8)

	v.SetDefault("jobs.max_concurrent_jobs", 1)
	v.SetDefault("jobs.ttl_hours", 6.0)

	v.SetDefault("validator.enabled", false)
	v.SetDefault("validator.timeout_seconds", 10)

	v.SetDefault("metrics.port", 9100)
	v.SetDefault("metrics.enable_metrics", true)
}
