package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/strategy"
)

// MockClient simulates an exchange for tests and for running a bot in
// watch mode without real credentials. Grounded on the teacher's
// internal/exchange/mock.go paper-trading exchange, trimmed to the three
// calls this core's scheduler actually makes: the teacher's order
// book/fill ledger and database persistence modeled a full paper-trading
// account, which nothing here needs since MockClient never sits behind
// real money.
type MockClient struct {
	mu sync.Mutex

	// Candles keyed by "exchange/symbol/period", returned by FetchOHLCV
	// regardless of the since requested; a positive limit keeps only the
	// last limit bars.
	Candles map[string][]candle.Candle

	// Quotes keyed by "exchange/pair".
	Quotes map[string]Quote

	// FailNext, if set, is returned (and cleared) by the next call to any
	// of the three methods.
	FailNext error

	// Orders records every MarketOrder/ClosePosition call, for assertions.
	Orders []MockOrder
}

// MockOrder is one recorded call to MarketOrder or ClosePosition.
type MockOrder struct {
	Exchange    string
	Pair        string
	Side        strategy.Direction
	QuoteAmount float64
	Closed      bool
}

// NewMockClient constructs an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Candles: map[string][]candle.Candle{},
		Quotes:  map[string]Quote{},
	}
}

func candleKey(exchange, symbol string, period candle.Period) string {
	return fmt.Sprintf("%s/%s/%s", exchange, symbol, period)
}

func quoteKey(exchange, pair string) string {
	return fmt.Sprintf("%s/%s", exchange, pair)
}

func (m *MockClient) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

// SetCandles seeds the candles FetchOHLCV returns for (exchange, symbol, period).
func (m *MockClient) SetCandles(exchange, symbol string, period candle.Period, candles []candle.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Candles[candleKey(exchange, symbol, period)] = candles
}

// SetQuote seeds the quote Quote returns for (exchange, pair).
func (m *MockClient) SetQuote(exchange, pair string, q Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Quotes[quoteKey(exchange, pair)] = q
}

// FetchOHLCV satisfies candles.MarketDataSource.
func (m *MockClient) FetchOHLCV(ctx context.Context, exchange, symbol string, period candle.Period, since int64, limit int) ([]candle.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	bars, ok := m.Candles[candleKey(exchange, symbol, period)]
	if !ok {
		return nil, fmt.Errorf("mock client has no candles seeded for %s %s %s", exchange, symbol, period)
	}
	if limit > 0 && limit < len(bars) {
		return bars[len(bars)-limit:], nil
	}
	return bars, nil
}

// Quote returns the seeded quote, in the same shape as Client.Quote.
func (m *MockClient) Quote(ctx context.Context, exchange, pair string) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return Quote{}, err
	}

	q, ok := m.Quotes[quoteKey(exchange, pair)]
	if !ok {
		return Quote{}, fmt.Errorf("mock client has no quote seeded for %s %s", exchange, pair)
	}
	return q, nil
}

// MarketOrder satisfies scheduler.OrderExecutor by recording the call.
func (m *MockClient) MarketOrder(ctx context.Context, exchange, pair string, side strategy.Direction, quoteAmount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	m.Orders = append(m.Orders, MockOrder{Exchange: exchange, Pair: pair, Side: side, QuoteAmount: quoteAmount})
	return nil
}

// ClosePosition satisfies scheduler.OrderExecutor by recording the call.
func (m *MockClient) ClosePosition(ctx context.Context, exchange, pair string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	m.Orders = append(m.Orders, MockOrder{Exchange: exchange, Pair: pair, Closed: true})
	return nil
}
