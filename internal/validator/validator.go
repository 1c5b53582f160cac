// Package validator is the optional, pluggable signal confirmation step
// (C8): a feature packet goes in, a confirmed/rationale verdict comes out.
// Grounded on internal/llm/interface.go's LLMClient interface shape
// (Complete/CompleteWithSystem/ParseJSONResponse), whose Client/FallbackClient
// split already models "never fatal, always degrade gracefully" -- the
// contract this package needs from any concrete validator backend.
package validator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/indicators"
)

// FeaturePacket is everything a validator backend sees about one candidate
// entry: the symbol and side, recent candle history, and a snapshot of the
// indicator values the strategy declared.
type FeaturePacket struct {
	Symbol            string
	Side              string
	RecentCandles     []candle.Candle
	IndicatorSnapshot map[string]indicators.Value
}

// Result is the validator's verdict.
type Result struct {
	Confirmed bool
	Rationale string
}

// unavailable is the fixed verdict returned whenever a backend cannot be
// consulted, per §4.8: never fatal to the calling run.
var unavailable = Result{Confirmed: false, Rationale: "validator_unavailable"}

// Validator is a pluggable backend (e.g. an LLM-backed confirmation step).
// Stateless from the core's perspective: the same packet may be validated
// concurrently by multiple runs.
type Validator interface {
	Validate(ctx context.Context, packet FeaturePacket) (Result, error)
}

// Validate calls backend.Validate with a bounded timeout and converts any
// error, timeout, or panic into the fixed "validator_unavailable" verdict
// rather than propagating failure into the caller's run.
func Validate(ctx context.Context, backend Validator, packet FeaturePacket, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: panicError{r}}
			}
		}()
		result, err := backend.Validate(ctx, packet)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Warn().Str("symbol", packet.Symbol).Msg("signal validator timed out")
		return unavailable
	case o := <-done:
		if o.err != nil {
			log.Warn().Err(o.err).Str("symbol", packet.Symbol).Msg("signal validator failed")
			return unavailable
		}
		return o.result
	}
}

type panicError struct{ value interface{} }

func (p panicError) Error() string { return "validator panic" }
