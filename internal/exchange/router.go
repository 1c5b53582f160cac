package exchange

import (
	"context"
	"fmt"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/exchangecache"
	"github.com/quantedge/stratcore/internal/resilience"
	"github.com/quantedge/stratcore/internal/scheduler"
	"github.com/quantedge/stratcore/internal/strategy"
	"github.com/quantedge/stratcore/internal/vault"
)

// Router satisfies candles.MarketDataSource, scheduler.QuoteSource and
// scheduler.OrderExecutor over however many configured exchanges this
// core talks to, resolving and memoising one Client per exchange name via
// C9's exchangecache.Cache. Market-data reads use the public client;
// order dispatch and balance reads use the authed client, since a single
// operator process has exactly one credential set per exchange rather
// than the per-trading-profile credentials exchangecache.GetAuthed was
// originally keyed for -- the exchange name doubles as that key here.
type Router struct {
	cache       *exchangecache.Cache
	manager     *resilience.Manager
	vaultClient *vault.Client
}

// NewRouter constructs a Router. vaultClient may be nil, in which case
// authed operations fail until a credentialed client is needed and none
// can be resolved.
func NewRouter(cache *exchangecache.Cache, manager *resilience.Manager, vaultClient *vault.Client) *Router {
	return &Router{cache: cache, manager: manager, vaultClient: vaultClient}
}

func (r *Router) public(exchange string) (*Client, error) {
	c, err := r.cache.GetPublic(exchange, PublicFactory(r.manager))
	if err != nil {
		return nil, err
	}
	client, ok := c.(*Client)
	if !ok {
		return nil, fmt.Errorf("cached public client for %q has unexpected type", exchange)
	}
	return client, nil
}

func (r *Router) authed(exchangeName string) (*Client, error) {
	if r.vaultClient == nil {
		return nil, fmt.Errorf("no vault client configured, cannot resolve credentials for %q", exchangeName)
	}
	c, err := r.cache.GetAuthed(exchangeName, AuthedFactory(r.vaultClient, r.manager, exchangeName))
	if err != nil {
		return nil, err
	}
	client, ok := c.(*Client)
	if !ok {
		return nil, fmt.Errorf("cached authed client for %q has unexpected type", exchangeName)
	}
	return client, nil
}

// FetchOHLCV satisfies candles.MarketDataSource.
func (r *Router) FetchOHLCV(ctx context.Context, exchangeName, symbol string, period candle.Period, since int64, limit int) ([]candle.Candle, error) {
	client, err := r.public(exchangeName)
	if err != nil {
		return nil, err
	}
	return client.FetchOHLCV(ctx, exchangeName, symbol, period, since, limit)
}

// Quote satisfies scheduler.QuoteSource.
func (r *Router) Quote(ctx context.Context, exchangeName, pair string) (scheduler.Quote, error) {
	client, err := r.public(exchangeName)
	if err != nil {
		return scheduler.Quote{}, err
	}
	q, err := client.Quote(ctx, exchangeName, pair)
	if err != nil {
		return scheduler.Quote{}, err
	}
	return scheduler.Quote{Bid: q.Bid, Ask: q.Ask}, nil
}

// MarketOrder satisfies scheduler.OrderExecutor.
func (r *Router) MarketOrder(ctx context.Context, exchangeName, pair string, side strategy.Direction, quoteAmount float64) error {
	client, err := r.authed(exchangeName)
	if err != nil {
		return err
	}
	return client.MarketOrder(ctx, exchangeName, pair, side, quoteAmount)
}

// ClosePosition satisfies scheduler.OrderExecutor.
func (r *Router) ClosePosition(ctx context.Context, exchangeName, pair string) error {
	client, err := r.authed(exchangeName)
	if err != nil {
		return err
	}
	return client.ClosePosition(ctx, exchangeName, pair)
}
