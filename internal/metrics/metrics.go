// Package metrics exposes Prometheus series for the components this core
// actually runs: the scheduler's tick loop, the back-test job service, the
// optional signal validator, and candle fetches. Grounded on the teacher's
// internal/metrics/metrics.go, narrowed from its trading-P&L/agent-
// orchestration/LLM-cost series (none of which this core produces) to the
// operational counters a back-test and signal-evaluation core emits.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker trip reasons, bounded so the label doesn't take on
// unbounded cardinality from raw gobreaker error strings.
const (
	ReasonTimeout   = "timeout"
	ReasonRateLimit = "rate_limit"
	ReasonOpenState = "open_state"
	ReasonOther     = "other"

	// Exchange API error categories (bounded set).
	ExchangeErrorTimeout     = "timeout"
	ExchangeErrorRateLimit   = "rate_limit"
	ExchangeErrorAuth        = "authentication"
	ExchangeErrorNetwork     = "network"
	ExchangeErrorInvalidReq  = "invalid_request"
	ExchangeErrorServerError = "server_error"
	ExchangeErrorOther       = "other"
)

// NormalizeCircuitBreakerReason maps an arbitrary breaker-trip reason to the
// bounded category set above.
func NormalizeCircuitBreakerReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return ReasonTimeout
	case strings.Contains(lower, "rate") || strings.Contains(lower, "limit"):
		return ReasonRateLimit
	case strings.Contains(lower, "open"):
		return ReasonOpenState
	default:
		return ReasonOther
	}
}

// NormalizeExchangeError maps an arbitrary exchange error to the bounded
// category set above.
func NormalizeExchangeError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ExchangeErrorTimeout
	case strings.Contains(errStr, "rate") || strings.Contains(errStr, "429"):
		return ExchangeErrorRateLimit
	case strings.Contains(errStr, "auth") || strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return ExchangeErrorAuth
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return ExchangeErrorNetwork
	case strings.Contains(errStr, "400") || strings.Contains(errStr, "invalid"):
		return ExchangeErrorInvalidReq
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") || strings.Contains(errStr, "503"):
		return ExchangeErrorServerError
	default:
		return ExchangeErrorOther
	}
}

// Scheduler metrics (C6).
var (
	TicksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_scheduler_ticks_total",
		Help: "Number of scheduler ticks processed, by outcome",
	}, []string{"outcome"})

	TickLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stratcore_scheduler_tick_latency_seconds",
		Help:    "Time from tick boundary to signal evaluation completing",
		Buckets: prometheus.DefBuckets,
	})

	SignalsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_signals_emitted_total",
		Help: "Number of trade signals emitted, by side",
	}, []string{"side"})
)

// Job service metrics (C7).
var (
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stratcore_jobs_submitted_total",
		Help: "Number of back-test jobs submitted",
	})

	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_jobs_completed_total",
		Help: "Number of back-test jobs completed, by outcome",
	}, []string{"outcome"})

	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stratcore_jobs_in_flight",
		Help: "Number of back-test jobs currently running",
	})

	JobDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stratcore_job_duration_seconds",
		Help:    "Wall-clock duration of a back-test job run",
		Buckets: prometheus.DefBuckets,
	})
)

// Validator metrics (C8).
var (
	ValidatorInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_validator_invocations_total",
		Help: "Number of validator backend calls, by outcome",
	}, []string{"outcome"})

	ValidatorLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stratcore_validator_latency_seconds",
		Help:    "Validator backend call latency",
		Buckets: prometheus.DefBuckets,
	})
)

// Candle-availability metrics (C5).
var (
	CandleFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_candle_fetches_total",
		Help: "Number of upstream OHLCV fetches, by exchange",
	}, []string{"exchange"})

	CandleCoverageRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stratcore_candle_coverage_ratio",
		Help: "Fraction of expected bars found persisted for the most recent range check",
	}, []string{"exchange", "symbol", "period"})
)

// Exchange instance cache metrics (C9).
var (
	ExchangeCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_exchange_cache_requests_total",
		Help: "Exchange client cache lookups, by result",
	}, []string{"result"})
)

// Circuit breaker metrics. internal/resilience owns its own state gauge and
// request/failure counters scoped to breaker name; this counter tracks trips
// by breaker and normalized reason for whichever caller records them (the
// resilience breakers do not call RecordCircuitBreakerTrip themselves).
var (
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips, by breaker and normalized reason",
	}, []string{"breaker", "reason"})
)

// Database and HTTP ambient metrics, kept from the teacher's system-health
// group since both this core's db pool and its metrics/health HTTP server
// need them.
var (
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stratcore_database_connections_active",
		Help: "Number of active database connections",
	})

	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stratcore_database_connections_idle",
		Help: "Number of idle database connections",
	})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stratcore_database_query_duration_ms",
		Help:    "Database query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"query_type"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_http_requests_total",
		Help: "Total number of HTTP requests served by the metrics/health server",
	}, []string{"method", "path", "status_code"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratcore_errors_total",
		Help: "Total number of errors by type and component",
	}, []string{"type", "component"})
)

// Helper functions to update metrics.

// UpdateDatabaseConnections updates database connection pool gauges.
func UpdateDatabaseConnections(active, idle int32) {
	DatabaseConnectionsActive.Set(float64(active))
	DatabaseConnectionsIdle.Set(float64(idle))
}

// RecordDatabaseQuery records a database query's duration.
func RecordDatabaseQuery(queryType string, durationMs float64) {
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(durationMs)
}

// RecordError records an error by type and originating component.
func RecordError(errorType, component string) {
	Errors.WithLabelValues(errorType, component).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, path, statusCode string) {
	HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
}

// RecordTick records a scheduler tick outcome and its latency.
func RecordTick(outcome string, durationSeconds float64) {
	TicksProcessed.WithLabelValues(outcome).Inc()
	TickLatencySeconds.Observe(durationSeconds)
}

// RecordSignal records an emitted trade signal.
func RecordSignal(side string) {
	SignalsEmitted.WithLabelValues(side).Inc()
}

// RecordJobSubmitted records a back-test job submission.
func RecordJobSubmitted() {
	JobsSubmitted.Inc()
	JobsInFlight.Inc()
}

// RecordJobCompleted records a back-test job's completion outcome and
// duration; pairs with RecordJobSubmitted to keep JobsInFlight accurate.
func RecordJobCompleted(outcome string, durationSeconds float64) {
	JobsCompleted.WithLabelValues(outcome).Inc()
	JobDurationSeconds.Observe(durationSeconds)
	JobsInFlight.Dec()
}

// RecordValidatorCall records a validator backend invocation.
func RecordValidatorCall(outcome string, durationSeconds float64) {
	ValidatorInvocations.WithLabelValues(outcome).Inc()
	ValidatorLatencySeconds.Observe(durationSeconds)
}

// RecordCandleFetch records an upstream OHLCV fetch for an exchange.
func RecordCandleFetch(exchange string) {
	CandleFetches.WithLabelValues(exchange).Inc()
}

// SetCandleCoverageRatio records the most recent coverage check for a series.
func SetCandleCoverageRatio(exchange, symbol string, period string, ratio float64) {
	CandleCoverageRatio.WithLabelValues(exchange, symbol, period).Set(ratio)
}

// RecordExchangeCacheRequest records an exchange client cache lookup result
// ("hit" or "miss").
func RecordExchangeCacheRequest(result string) {
	ExchangeCacheRequests.WithLabelValues(result).Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip with a normalized
// reason.
func RecordCircuitBreakerTrip(breaker, reason string) {
	CircuitBreakerTrips.WithLabelValues(breaker, NormalizeCircuitBreakerReason(reason)).Inc()
}
