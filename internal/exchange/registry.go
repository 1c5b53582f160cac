package exchange

import (
	"context"
	"fmt"

	"github.com/quantedge/stratcore/internal/exchangecache"
	"github.com/quantedge/stratcore/internal/resilience"
	"github.com/quantedge/stratcore/internal/vault"
)

// PublicFactory builds an exchangecache.Factory for a credential-free
// Client, suitable for market-data-only use (FetchOHLCV, Quote) against a
// given exchange's public endpoints.
func PublicFactory(manager *resilience.Manager) exchangecache.Factory {
	return func() (interface{}, error) {
		return NewClient("", "", manager), nil
	}
}

// AuthedFactory builds an exchangecache.Factory that resolves one
// exchange's API credentials from Vault before constructing a Client
// capable of placing orders.
func AuthedFactory(vaultClient *vault.Client, manager *resilience.Manager, exchangeName string) exchangecache.Factory {
	return func() (interface{}, error) {
		ctx := context.Background()
		secret, err := vaultClient.GetExchangeSecret(ctx, exchangeName)
		if err != nil {
			return nil, fmt.Errorf("resolve %s credentials: %w", exchangeName, err)
		}
		return NewClient(secret.APIKey, secret.SecretKey, manager), nil
	}
}
