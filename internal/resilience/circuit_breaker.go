// Package resilience wraps outbound calls to services this core doesn't
// control -- exchanges, the database, the optional signal validator -- in
// per-service circuit breakers so a slow or failing dependency degrades
// instead of cascading. Grounded on the teacher's
// internal/risk/circuit_breaker.go, trimmed to the three service types
// this core actually calls out to (the teacher's fourth type, LLM, covered
// the chat-style trading advisor this core doesn't have; C8's validator
// backend takes its slot instead).
package resilience

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Circuit breaker states, mirrored as string labels for Prometheus.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Default thresholds, one set per service type. Validator keeps the
// teacher's LLM settings (longer timeout, fewer minimum requests) since
// both are calls to a backend that can be slow to respond but is never
// required for a run to make progress.
const (
	ExchangeMinRequests     = 5
	ExchangeFailureRatio    = 0.6
	ExchangeOpenTimeout     = 30 * time.Second
	ExchangeHalfOpenMaxReqs = 3
	ExchangeCountInterval   = 10 * time.Second

	ValidatorMinRequests     = 3
	ValidatorFailureRatio    = 0.6
	ValidatorOpenTimeout     = 60 * time.Second
	ValidatorHalfOpenMaxReqs = 2
	ValidatorCountInterval   = 10 * time.Second

	DBMinRequests     = 10
	DBFailureRatio    = 0.6
	DBOpenTimeout     = 15 * time.Second
	DBHalfOpenMaxReqs = 5
	DBCountInterval   = 10 * time.Second
)

// Manager holds one circuit breaker per service type this core depends on.
type Manager struct {
	exchange  *gobreaker.CircuitBreaker
	validator *gobreaker.CircuitBreaker
	database  *gobreaker.CircuitBreaker
	metrics   *Metrics
}

// Metrics holds the Prometheus series a Manager reports through.
type Metrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			state: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "stratcore_circuit_breaker_state",
					Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
				},
				[]string{"service"},
			),
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "stratcore_circuit_breaker_requests_total",
					Help: "Total number of requests through a circuit breaker",
				},
				[]string{"service", "result"},
			),
			failures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "stratcore_circuit_breaker_failures_total",
					Help: "Total number of failures tracked by a circuit breaker",
				},
				[]string{"service"},
			),
		}
	})
}

// ServiceSettings configures a single service's circuit breaker.
type ServiceSettings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

// ParseDuration parses a duration string, falling back to defaultValue on
// an empty or malformed input -- used when settings arrive from config.
func ParseDuration(durationStr string, defaultValue time.Duration) time.Duration {
	if durationStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultValue
	}
	return d
}

// NewManager creates a Manager with default thresholds for all three
// service types.
func NewManager() *Manager {
	return NewManagerWithSettings(nil, nil, nil)
}

// NewManagerWithSettings creates a Manager, substituting any nil settings
// with the package defaults for that service type.
func NewManagerWithSettings(exchangeSettings, validatorSettings, dbSettings *ServiceSettings) *Manager {
	initMetrics()

	manager := &Manager{metrics: globalMetrics}

	if exchangeSettings == nil {
		exchangeSettings = &ServiceSettings{
			MinRequests:     ExchangeMinRequests,
			FailureRatio:    ExchangeFailureRatio,
			OpenTimeout:     ExchangeOpenTimeout,
			HalfOpenMaxReqs: ExchangeHalfOpenMaxReqs,
			CountInterval:   ExchangeCountInterval,
		}
	}
	if validatorSettings == nil {
		validatorSettings = &ServiceSettings{
			MinRequests:     ValidatorMinRequests,
			FailureRatio:    ValidatorFailureRatio,
			OpenTimeout:     ValidatorOpenTimeout,
			HalfOpenMaxReqs: ValidatorHalfOpenMaxReqs,
			CountInterval:   ValidatorCountInterval,
		}
	}
	if dbSettings == nil {
		dbSettings = &ServiceSettings{
			MinRequests:     DBMinRequests,
			FailureRatio:    DBFailureRatio,
			OpenTimeout:     DBOpenTimeout,
			HalfOpenMaxReqs: DBHalfOpenMaxReqs,
			CountInterval:   DBCountInterval,
		}
	}

	manager.exchange = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "exchange",
		MaxRequests: exchangeSettings.HalfOpenMaxReqs,
		Interval:    exchangeSettings.CountInterval,
		Timeout:     exchangeSettings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= exchangeSettings.MinRequests && ratio >= exchangeSettings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			manager.updateMetrics("exchange", to)
		},
	})

	manager.validator = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "validator",
		MaxRequests: validatorSettings.HalfOpenMaxReqs,
		Interval:    validatorSettings.CountInterval,
		Timeout:     validatorSettings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= validatorSettings.MinRequests && ratio >= validatorSettings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			manager.updateMetrics("validator", to)
		},
	})

	manager.database = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "database",
		MaxRequests: dbSettings.HalfOpenMaxReqs,
		Interval:    dbSettings.CountInterval,
		Timeout:     dbSettings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= dbSettings.MinRequests && ratio >= dbSettings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			manager.updateMetrics("database", to)
		},
	})

	manager.updateMetrics("exchange", manager.exchange.State())
	manager.updateMetrics("validator", manager.validator.State())
	manager.updateMetrics("database", manager.database.State())

	return manager
}

// NewPassthroughManager returns a Manager whose breakers never trip, for
// tests that want circuit-breaker plumbing present without interference.
func NewPassthroughManager() *Manager {
	initMetrics()

	manager := &Manager{metrics: globalMetrics}
	neverTrip := func(counts gobreaker.Counts) bool { return false }

	manager.exchange = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "exchange_passthrough", MaxRequests: 1000, Timeout: time.Millisecond, ReadyToTrip: neverTrip,
	})
	manager.validator = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "validator_passthrough", MaxRequests: 1000, Timeout: time.Millisecond, ReadyToTrip: neverTrip,
	})
	manager.database = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "database_passthrough", MaxRequests: 1000, Timeout: time.Millisecond, ReadyToTrip: neverTrip,
	})

	return manager
}

// Exchange returns the circuit breaker guarding exchange calls (market
// data fetches and order placement).
func (m *Manager) Exchange() *gobreaker.CircuitBreaker { return m.exchange }

// Validator returns the circuit breaker guarding the optional C8 signal
// validator backend.
func (m *Manager) Validator() *gobreaker.CircuitBreaker { return m.validator }

// Database returns the circuit breaker guarding database calls.
func (m *Manager) Database() *gobreaker.CircuitBreaker { return m.database }

func (m *Manager) updateMetrics(service string, state gobreaker.State) {
	var stateValue float64
	switch state {
	case gobreaker.StateClosed:
		stateValue = 0
	case gobreaker.StateOpen:
		stateValue = 1
	case gobreaker.StateHalfOpen:
		stateValue = 2
	}
	m.metrics.state.WithLabelValues(service).Set(stateValue)
}

// RecordRequest records one request's outcome for a service's metrics.
func (m *Metrics) RecordRequest(service string, success bool) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
		m.failures.WithLabelValues(service).Inc()
	}
	m.requests.WithLabelValues(service, result).Inc()
}

// Metrics returns the Manager's metrics instance for manual recording by
// callers that bypass Execute (e.g. streaming exchange calls).
func (m *Manager) Metrics() *Metrics { return m.metrics }
