package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateExchanges()...)
	errors = append(errors, c.validateVault()...)
	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateJobs()...)
	errors = append(errors, c.validateValidator()...)
	errors = append(errors, c.validateMetrics()...)
	errors = append(errors, c.validateEnvironmentRequirements()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "Application name is required",
		})
	}

	if c.App.Environment == "" {
		errors = append(errors, ValidationError{
			Field:   "app.environment",
			Message: "Environment is required (development, staging, or production)",
		})
	} else {
		validEnvs := []string{"development", "staging", "production"}
		valid := false
		for _, env := range validEnvs {
			if c.App.Environment == env {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "app.environment",
				Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvs),
			})
		}
	}

	if c.App.LogLevel == "" {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: "Log level is required (debug, info, warn, error)",
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	if c.Database.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "Database host is required",
		})
	}

	if c.Database.Port == 0 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: "Database port is required",
		})
	} else if c.Database.Port < 1 || c.Database.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Database.Port),
		})
	}

	if c.Database.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "Database user is required",
		})
	}

	if c.Database.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "Database name is required",
		})
	}

	if c.Database.Password == "" && c.App.Environment != "development" {
		errors = append(errors, ValidationError{
			Field:   "database.password",
			Message: "Database password is required in non-development environments",
		})
	}

	if c.Database.PoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.pool_size",
			Message: "Database pool size must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateExchanges() ValidationErrors {
	var errors ValidationErrors

	if len(c.Exchanges) == 0 {
		errors = append(errors, ValidationError{
			Field:   "exchanges",
			Message: "At least one exchange must be configured",
		})
	}

	for exchangeName, exchangeConfig := range c.Exchanges {
		if c.App.Environment == "production" && exchangeConfig.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.api_key", exchangeName),
				Message: "API key is required in production",
			})
		}

		if c.App.Environment == "production" && exchangeConfig.SecretKey == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.secret_key", exchangeName),
				Message: "Secret key is required in production",
			})
		}
	}

	return errors
}

func (c *Config) validateVault() ValidationErrors {
	var errors ValidationErrors

	if c.Vault.Enabled && c.Vault.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "vault.address",
			Message: "Vault address is required when vault is enabled",
		})
	}

	return errors
}

func (c *Config) validateScheduler() ValidationErrors {
	var errors ValidationErrors

	if c.Scheduler.TickIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.tick_interval_seconds",
			Message: "Tick interval must be at least 1 second",
		})
	}

	if c.Scheduler.BoundaryLagSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.boundary_lag_seconds",
			Message: "Boundary lag must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateJobs() ValidationErrors {
	var errors ValidationErrors

	if c.Jobs.MaxConcurrentJobs < 1 {
		errors = append(errors, ValidationError{
			Field:   "jobs.max_concurrent_jobs",
			Message: "Max concurrent jobs must be at least 1",
		})
	}

	if c.Jobs.TTLHours <= 0 {
		errors = append(errors, ValidationError{
			Field:   "jobs.ttl_hours",
			Message: "TTL hours must be greater than 0",
		})
	}

	return errors
}

func (c *Config) validateValidator() ValidationErrors {
	var errors ValidationErrors

	if c.Validator.Enabled {
		if c.Validator.Endpoint == "" {
			errors = append(errors, ValidationError{
				Field:   "validator.endpoint",
				Message: "Validator endpoint is required when validator is enabled",
			})
		}
		if c.Validator.TimeoutSeconds < 1 {
			errors = append(errors, ValidationError{
				Field:   "validator.timeout_seconds",
				Message: "Validator timeout must be at least 1 second",
			})
		}
	}

	return errors
}

func (c *Config) validateMetrics() ValidationErrors {
	var errors ValidationErrors

	if c.Metrics.EnableMetrics && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errors = append(errors, ValidationError{
			Field:   "metrics.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Metrics.Port),
		})
	}

	return errors
}

func (c *Config) validateEnvironmentRequirements() ValidationErrors {
	var errors ValidationErrors

	if c.App.Environment == "production" {
		secretErrors := ValidateProductionSecrets(c)
		errors = append(errors, secretErrors...)

		for exchangeName, exchangeConfig := range c.Exchanges {
			if exchangeConfig.Testnet {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("exchanges.%s.testnet", exchangeName),
					Message: "Testnet mode must be disabled in production",
				})
			}
		}

		if c.Database.SSLMode == "disable" {
			errors = append(errors, ValidationError{
				Field:   "database.ssl_mode",
				Message: "SSL must be enabled for database in production",
			})
		}
	}

	return errors
}

// ValidateAndLoad loads and validates configuration. configPath can be
// empty to use default config locations.
func ValidateAndLoad(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
