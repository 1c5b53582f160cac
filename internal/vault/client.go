// Package vault provides a client for HashiCorp Vault integration,
// resolving database, cache, messaging, and exchange credentials for the
// rest of the module.
//
// ============================================================================
// SECURITY NOTICE
// ============================================================================
// For LOCAL DEVELOPMENT:
//   - Uses VAULT_DEV_TOKEN environment variable (predictable, insecure)
//   - Vault runs in dev mode with no authentication required
//
// For PRODUCTION:
//   - Use VAULT_TOKEN with proper AppRole/Kubernetes authentication
//   - Enable TLS for Vault communication (VAULT_ADDR should use https://)
//
// NEVER use development tokens in production environments.
// ============================================================================
package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"
)

// Known insecure development tokens that should trigger warnings.
var insecureDevTokens = map[string]bool{
	"stratcore-dev-token": true,
	"root":                true,
	"dev":                 true,
	"test":                true,
}

// Client wraps the HashiCorp Vault API client with a short-lived read cache,
// avoiding a round trip on every secret lookup in hot paths like per-tick
// exchange credential resolution.
type Client struct {
	api      *vaultapi.Client
	mount    string
	prefix   string
	cache    map[string]*cachedSecret
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
}

type cachedSecret struct {
	data      map[string]interface{}
	expiresAt time.Time
}

// Config holds Vault client configuration.
type Config struct {
	Address  string        // Vault server address (default: http://localhost:8200)
	Token    string        // Vault token for authentication
	Mount    string        // KV v2 mount path (default: "secret")
	Prefix   string        // Base path under the mount (default: "stratcore")
	CacheTTL time.Duration // How long to cache secrets (default: 5 minutes)
	Timeout  time.Duration // HTTP client timeout (default: 30 seconds)
}

// NewClient creates a new Vault client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		cfg.Address = os.Getenv("VAULT_ADDR")
		if cfg.Address == "" {
			cfg.Address = "http://localhost:8200"
		}
	}

	tokenSource := "config"
	if cfg.Token == "" {
		cfg.Token = os.Getenv("VAULT_TOKEN")
		if cfg.Token != "" {
			tokenSource = "VAULT_TOKEN"
		} else {
			cfg.Token = os.Getenv("VAULT_DEV_TOKEN")
			if cfg.Token != "" {
				tokenSource = "VAULT_DEV_TOKEN"
			}
		}
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("vault token is required (set VAULT_TOKEN or VAULT_DEV_TOKEN)")
	}

	if insecureDevTokens[cfg.Token] {
		log.Warn().
			Str("token_source", tokenSource).
			Str("vault_addr", cfg.Address).
			Msg("SECURITY WARNING: using known insecure development token. Do not use in production")
	}

	if strings.HasPrefix(cfg.Address, "http://") && !strings.Contains(cfg.Address, "localhost") && !strings.Contains(cfg.Address, "127.0.0.1") {
		log.Warn().
			Str("vault_addr", cfg.Address).
			Msg("SECURITY WARNING: using unencrypted HTTP connection to non-localhost Vault")
	}

	if cfg.Mount == "" {
		cfg.Mount = "secret"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "stratcore"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	apiCfg := vaultapi.DefaultConfig()
	apiCfg.Address = cfg.Address
	if err := apiCfg.ConfigureTLS(&vaultapi.TLSConfig{}); err != nil {
		return nil, fmt.Errorf("failed to configure vault TLS: %w", err)
	}
	apiCfg.Timeout = cfg.Timeout

	api, err := vaultapi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	api.SetToken(cfg.Token)

	log.Info().
		Str("vault_addr", cfg.Address).
		Str("token_source", tokenSource).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("vault client initialized")

	return &Client{
		api:      api,
		mount:    cfg.Mount,
		prefix:   cfg.Prefix,
		cache:    make(map[string]*cachedSecret),
		cacheTTL: cfg.CacheTTL,
	}, nil
}

// NewClientFromEnv creates a new Vault client using only environment variables.
func NewClientFromEnv() (*Client, error) {
	return NewClient(Config{})
}

// GetSecret retrieves a secret from the KV v2 mount. name is relative to
// the configured prefix (e.g. "database", "exchanges/binance").
func (c *Client) GetSecret(ctx context.Context, name string) (map[string]interface{}, error) {
	if cached := c.getCached(name); cached != nil {
		return cached, nil
	}

	path := fmt.Sprintf("%s/data/%s/%s", c.mount, c.prefix, name)

	secret, err := c.api.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	c.setCached(name, data)
	return data, nil
}

// GetSecretString retrieves a single string field from a secret.
func (c *Client) GetSecretString(ctx context.Context, name, key string) (string, error) {
	data, err := c.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}

	value, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("key %q not found or not a string at %s", key, name)
	}
	return value, nil
}

func (c *Client) getCached(name string) map[string]interface{} {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	cached, ok := c.cache[name]
	if !ok || time.Now().After(cached.expiresAt) {
		return nil
	}
	return cached.data
}

func (c *Client) setCached(name string, data map[string]interface{}) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[name] = &cachedSecret{data: data, expiresAt: time.Now().Add(c.cacheTTL)}
}

// ClearCache drops all cached secrets, forcing the next read to hit Vault.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]*cachedSecret)
}

// DatabaseSecret holds database connection credentials.
type DatabaseSecret struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// GetDatabaseConfig retrieves database credentials from Vault.
func (c *Client) GetDatabaseConfig(ctx context.Context) (*DatabaseSecret, error) {
	data, err := c.GetSecret(ctx, "database")
	if err != nil {
		return nil, fmt.Errorf("failed to get database secret: %w", err)
	}

	cfg := &DatabaseSecret{}
	if v, ok := data["host"].(string); ok {
		cfg.Host = v
	}
	if v, ok := data["port"].(string); ok {
		cfg.Port = v
	}
	if v, ok := data["database"].(string); ok {
		cfg.Database = v
	}
	if v, ok := data["username"].(string); ok {
		cfg.Username = v
	} else if v, ok := data["user"].(string); ok {
		cfg.Username = v
	}
	if v, ok := data["password"].(string); ok {
		cfg.Password = v
	}
	if v, ok := data["sslmode"].(string); ok {
		cfg.SSLMode = v
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (cfg *DatabaseSecret) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)
}

// ExchangeSecret holds one exchange's API credentials.
type ExchangeSecret struct {
	APIKey    string
	SecretKey string
}

// GetExchangeSecret retrieves one exchange's API credentials from Vault,
// stored at "exchanges/<name>".
func (c *Client) GetExchangeSecret(ctx context.Context, exchange string) (*ExchangeSecret, error) {
	data, err := c.GetSecret(ctx, fmt.Sprintf("exchanges/%s", exchange))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s exchange secret: %w", exchange, err)
	}

	cfg := &ExchangeSecret{}
	if v, ok := data["api_key"].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := data["secret_key"].(string); ok {
		cfg.SecretKey = v
	}

	return cfg, nil
}

// CacheSecret holds Redis connection credentials; no component in this
// module reads them.
type CacheSecret struct {
	Host     string
	Port     string
	Password string
}

// GetCacheConfig retrieves Redis credentials from Vault.
func (c *Client) GetCacheConfig(ctx context.Context) (*CacheSecret, error) {
	data, err := c.GetSecret(ctx, "cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache secret: %w", err)
	}

	cfg := &CacheSecret{}
	if v, ok := data["host"].(string); ok {
		cfg.Host = v
	}
	if v, ok := data["port"].(string); ok {
		cfg.Port = v
	}
	if v, ok := data["password"].(string); ok {
		cfg.Password = v
	}

	return cfg, nil
}

// Address returns the cache address in host:port form.
func (cfg *CacheSecret) Address() string {
	return fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
}

// MessagingSecret holds the NATS connection URL for the optional
// cross-process notification backend.
type MessagingSecret struct {
	URL string
}

// GetMessagingConfig retrieves NATS connection details from Vault.
func (c *Client) GetMessagingConfig(ctx context.Context) (*MessagingSecret, error) {
	data, err := c.GetSecret(ctx, "messaging")
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging secret: %w", err)
	}

	cfg := &MessagingSecret{}
	if v, ok := data["url"].(string); ok {
		cfg.URL = v
	}

	return cfg, nil
}

// MustNewClient creates a new Vault client or terminates the process.
func MustNewClient(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create vault client")
	}
	return client
}
