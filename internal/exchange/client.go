// Package exchange adapts the Binance spot SDK to the narrow interfaces the
// rest of this core depends on: candles.MarketDataSource for historical
// OHLCV, scheduler.QuoteSource for a pre-trade bid/ask snapshot, and
// scheduler.OrderExecutor for trade-mode signal dispatch. Grounded on the
// teacher's internal/exchange/binance.go, which talks to the same SDK for
// order placement -- reworked here since the teacher's BinanceExchange
// tracks its own order/fill state and session bookkeeping, neither of
// which this core's read-only evaluation and single-shot order dispatch
// need.
package exchange

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/resilience"
	"github.com/quantedge/stratcore/internal/strategy"
)

// Client wraps one Binance SDK client with the circuit breaker every
// outbound call runs through. One Client serves one set of credentials;
// exchangecache.Cache is what keys Clients by exchange name or profile id.
type Client struct {
	sdk     *binance.Client
	breaker *gobreaker.CircuitBreaker
	alerts  *AlertManager

	mu sync.RWMutex
}

// NewClient constructs a Client against Binance's REST API. An empty
// apiKey/secretKey pair is valid for market-data-only use (FetchOHLCV,
// Quote); MarketOrder and ClosePosition require real credentials.
func NewClient(apiKey, secretKey string, manager *resilience.Manager) *Client {
	return &Client{
		sdk:     binance.NewClient(apiKey, secretKey),
		breaker: manager.Exchange(),
		alerts:  NewAlertManager(),
	}
}

// binanceInterval maps a candle.Period to Binance's kline interval string.
// Every period this core recognizes happens to already be spelled the way
// Binance's API expects it.
func binanceInterval(p candle.Period) (string, error) {
	if !candle.Valid(p) {
		return "", fmt.Errorf("unknown period %q", p)
	}
	return string(p), nil
}

// FetchOHLCV satisfies candles.MarketDataSource. exchange is accepted for
// interface conformance; this Client always talks to the Binance endpoint
// it was constructed against, so a mismatched name is an adapter wiring
// bug rather than something to branch on here.
func (c *Client) FetchOHLCV(ctx context.Context, exchange, symbol string, period candle.Period, since int64, limit int) ([]candle.Candle, error) {
	interval, err := binanceInterval(period)
	if err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		svc := c.sdk.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
		if since > 0 {
			svc = svc.StartTime(since * 1000)
		}
		return svc.Do(ctx)
	})
	if err != nil {
		c.alerts.SendAlert(ctx, AlertMarketDataFailed(err, exchange, symbol, string(period)))
		return nil, fmt.Errorf("fetch klines for %s %s: %w", symbol, period, err)
	}

	klines := result.([]*binance.Kline)
	candles := make([]candle.Candle, 0, len(klines))
	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("parse open %q: %w", k.Open, err)
		}
		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, fmt.Errorf("parse high %q: %w", k.High, err)
		}
		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("parse low %q: %w", k.Low, err)
		}
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", k.Close, err)
		}
		volume, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, fmt.Errorf("parse volume %q: %w", k.Volume, err)
		}

		candles = append(candles, candle.Candle{
			Time:   k.OpenTime / 1000,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return candles, nil
}

// Quote fetches a bid/ask snapshot via Binance's order book ticker.
// Router.Quote converts it to scheduler.Quote for scheduler.QuoteSource.
func (c *Client) Quote(ctx context.Context, exchange, pair string) (Quote, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.sdk.NewListBookTickersService().Symbol(pair).Do(ctx)
	})
	if err != nil {
		c.alerts.SendAlert(ctx, AlertMarketDataFailed(err, exchange, pair, "quote"))
		return Quote{}, fmt.Errorf("fetch book ticker for %s: %w", pair, err)
	}

	tickers := result.([]*binance.BookTicker)
	if len(tickers) == 0 {
		return Quote{}, fmt.Errorf("no book ticker returned for %s", pair)
	}

	bid, err := strconv.ParseFloat(tickers[0].BidPrice, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parse bid %q: %w", tickers[0].BidPrice, err)
	}
	ask, err := strconv.ParseFloat(tickers[0].AskPrice, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("parse ask %q: %w", tickers[0].AskPrice, err)
	}

	return Quote{Bid: bid, Ask: ask}, nil
}

// Quote is a current bid/ask snapshot for a pair, with the same fields as
// scheduler.Quote; Router.Quote does the conversion.
type Quote struct {
	Bid float64
	Ask float64
}

// MarketOrder satisfies scheduler.OrderExecutor. quoteAmount is spent at
// market using Binance's quoteOrderQty order field, so callers work in
// quote-currency terms (e.g. USDT to spend) without pre-converting to a
// base-asset quantity themselves. side == strategy.Close is rejected here;
// closing a position is ClosePosition's job.
func (c *Client) MarketOrder(ctx context.Context, exchange, pair string, side strategy.Direction, quoteAmount float64) error {
	var orderSide binance.SideType
	switch side {
	case strategy.Long:
		orderSide = binance.SideTypeBuy
	case strategy.Short:
		orderSide = binance.SideTypeSell
	default:
		return fmt.Errorf("market order requires long or short, got %q", side)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := WithRetry(ctx, DefaultRetryConfig(), func() error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return c.sdk.NewCreateOrderService().
				Symbol(pair).
				Side(orderSide).
				Type(binance.OrderTypeMarket).
				QuoteOrderQty(fmt.Sprintf("%.8f", quoteAmount)).
				Do(ctx)
		})
		return err
	})
	if err != nil {
		c.alerts.SendAlert(ctx, AlertOrderPlacementFailed(err, exchange, pair, string(side), quoteAmount))
		return fmt.Errorf("place %s market order on %s: %w", side, pair, err)
	}

	log.Info().
		Str("exchange", exchange).
		Str("pair", pair).
		Str("side", string(side)).
		Float64("quote_amount", quoteAmount).
		Msg("market order placed")

	return nil
}

// ClosePosition satisfies scheduler.OrderExecutor. This core holds no
// position ledger of its own, so it closes by selling the account's full
// free balance of the pair's base asset -- the same approach the
// teacher's paper-trading mock takes for a spot-only, no-margin book.
func (c *Client) ClosePosition(ctx context.Context, exchange, pair string) error {
	baseAsset, err := baseAssetOf(pair)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.sdk.NewGetAccountService().Do(ctx)
	})
	if err != nil {
		c.alerts.SendAlert(ctx, AlertOrderPlacementFailed(err, exchange, pair, "close", 0))
		return fmt.Errorf("fetch account balances to close %s: %w", pair, err)
	}

	account := result.(*binance.Account)
	var free string
	for _, balance := range account.Balances {
		if balance.Asset == baseAsset {
			free = balance.Free
			break
		}
	}
	if free == "" {
		return fmt.Errorf("no free balance of %s to close", baseAsset)
	}
	quantity, err := strconv.ParseFloat(free, 64)
	if err != nil {
		return fmt.Errorf("parse free balance %q: %w", free, err)
	}
	if quantity <= 0 {
		log.Info().Str("pair", pair).Msg("close requested with zero free balance, no-op")
		return nil
	}

	err = WithRetry(ctx, DefaultRetryConfig(), func() error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return c.sdk.NewCreateOrderService().
				Symbol(pair).
				Side(binance.SideTypeSell).
				Type(binance.OrderTypeMarket).
				Quantity(fmt.Sprintf("%.8f", quantity)).
				Do(ctx)
		})
		return err
	})
	if err != nil {
		c.alerts.SendAlert(ctx, AlertOrderPlacementFailed(err, exchange, pair, "close", quantity))
		return fmt.Errorf("close position on %s: %w", pair, err)
	}

	log.Info().
		Str("exchange", exchange).
		Str("pair", pair).
		Float64("quantity", quantity).
		Msg("position closed")

	return nil
}

// baseAssetOf strips the quote currency suffix from a Binance symbol like
// "BTCUSDT". Binance doesn't expose a delimiter between base and quote, so
// this only recognizes the handful of quote assets this core is expected
// to trade against.
func baseAssetOf(pair string) (string, error) {
	for _, quote := range []string{"USDT", "BUSD", "USDC", "BTC", "ETH"} {
		if len(pair) > len(quote) && pair[len(pair)-len(quote):] == quote {
			return pair[:len(pair)-len(quote)], nil
		}
	}
	return "", fmt.Errorf("unrecognized quote asset suffix on pair %q", pair)
}
