package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	result Result
	err    error
	delay  time.Duration
	panics bool
}

func (s stubValidator) Validate(ctx context.Context, _ FeaturePacket) (Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func TestValidate_SuccessPassesThrough(t *testing.T) {
	backend := stubValidator{result: Result{Confirmed: true, Rationale: "looks good"}}
	got := Validate(context.Background(), backend, FeaturePacket{Symbol: "BTCUSDT"}, time.Second)
	assert.Equal(t, Result{Confirmed: true, Rationale: "looks good"}, got)
}

func TestValidate_ErrorBecomesUnavailable(t *testing.T) {
	backend := stubValidator{err: errors.New("boom")}
	got := Validate(context.Background(), backend, FeaturePacket{}, time.Second)
	assert.Equal(t, unavailable, got)
}

func TestValidate_TimeoutBecomesUnavailable(t *testing.T) {
	backend := stubValidator{delay: 50 * time.Millisecond}
	got := Validate(context.Background(), backend, FeaturePacket{}, time.Millisecond)
	assert.Equal(t, unavailable, got)
}

func TestValidate_PanicBecomesUnavailable(t *testing.T) {
	backend := stubValidator{panics: true}
	got := Validate(context.Background(), backend, FeaturePacket{}, time.Second)
	assert.Equal(t, unavailable, got)
}
