package exchange

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// AlertSeverity represents the severity level of an alert.
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "CRITICAL"
	AlertSeverityWarning  AlertSeverity = "WARNING"
)

// AlertCategory represents the category of an alert. Narrowed from the
// teacher's internal/exchange/alerts.go down to the failure modes this
// core's market-data-fetch and order-dispatch adapter actually raises --
// order cancel/query, position, session, and database alerts belonged to
// the teacher's own order/fill/session bookkeeping, which this core's
// OrderExecutor doesn't keep.
type AlertCategory string

const (
	AlertCategoryMarketData     AlertCategory = "MARKET_DATA"
	AlertCategoryOrderPlacement AlertCategory = "ORDER_PLACEMENT"
	AlertCategoryExchange       AlertCategory = "EXCHANGE"
)

// Alert represents an error alert with structured data.
type Alert struct {
	Severity  AlertSeverity          `json:"severity"`
	Category  AlertCategory          `json:"category"`
	Message   string                 `json:"message"`
	Error     error                  `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// AlertManager handles error alerting, today by structured logging only.
type AlertManager struct{}

// NewAlertManager creates a new alert manager.
func NewAlertManager() *AlertManager {
	return &AlertManager{}
}

// SendAlert logs an alert at a level matching its severity.
func (am *AlertManager) SendAlert(ctx context.Context, alert Alert) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	logEvent := log.With().
		Str("severity", string(alert.Severity)).
		Str("category", string(alert.Category)).
		Time("timestamp", alert.Timestamp)

	for key, value := range alert.Context {
		logEvent = logEvent.Interface(key, value)
	}
	if alert.Error != nil {
		logEvent = logEvent.Err(alert.Error)
	}

	logger := logEvent.Logger()
	switch alert.Severity {
	case AlertSeverityCritical:
		logger.Error().Msg(alert.Message)
	default:
		logger.Warn().Msg(alert.Message)
	}
}

// AlertMarketDataFailed creates an alert for a failed OHLCV or quote fetch.
// Retryable errors stay at warning; anything else is critical, since a
// persistent market-data outage stalls every bot on that exchange.
func AlertMarketDataFailed(err error, exchange, symbol, kind string) Alert {
	severity := AlertSeverityCritical
	if IsRetryable(err) {
		severity = AlertSeverityWarning
	}
	return Alert{
		Severity: severity,
		Category: AlertCategoryMarketData,
		Message:  "Failed to fetch market data",
		Error:    err,
		Context: map[string]interface{}{
			"exchange": exchange,
			"symbol":   symbol,
			"kind":     kind,
		},
	}
}

// AlertOrderPlacementFailed creates an alert for a failed market order or
// position close.
func AlertOrderPlacementFailed(err error, exchange, pair, side string, amount float64) Alert {
	severity := AlertSeverityCritical
	if IsRetryable(err) {
		severity = AlertSeverityWarning
	}
	return Alert{
		Severity: severity,
		Category: AlertCategoryOrderPlacement,
		Message:  "Failed to place order",
		Error:    err,
		Context: map[string]interface{}{
			"exchange": exchange,
			"pair":     pair,
			"side":     side,
			"amount":   amount,
		},
	}
}

// AlertExchangeConnectionFailed creates an alert for a failed client
// construction or credential lookup.
func AlertExchangeConnectionFailed(err error, exchange string) Alert {
	return Alert{
		Severity: AlertSeverityCritical,
		Category: AlertCategoryExchange,
		Message:  "Failed to connect to exchange",
		Error:    err,
		Context: map[string]interface{}{
			"exchange": exchange,
		},
	}
}
