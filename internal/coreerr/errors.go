// Package coreerr defines the tagged error kinds shared across the
// strategy evaluation core, following the classify-then-wrap pattern used
// throughout the exchange and LLM clients (a typed wrapper carrying both the
// cause and a comparable classification, rather than string matching).
package coreerr

import "fmt"

// Kind classifies a core error per the propagation policy: only
// ValidationError surfaces before a job is created; inside a run, only
// InsufficientData and MarketDataUnavailable cause a job to fail.
type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindInsufficientData     Kind = "insufficient_data"
	KindMarketDataUnavailable Kind = "market_data_unavailable"
	KindStrategyRuntime      Kind = "strategy_runtime_error"
	KindValidatorUnavailable Kind = "validator_unavailable"
	KindPersistence          Kind = "persistence_error"
	KindSchedulerBot         Kind = "scheduler_bot_error"
)

// Error is a Kind-tagged wrapper around an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, coreerr.Sentinel(kind)) comparisons by
// matching any *Error target that carries the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New wraps err with kind and an operation label for context.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a Kind-tagged error from a format string, with no underlying cause.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Sentinel returns a zero-Op error of the given kind, used as an
// errors.Is comparison target.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
