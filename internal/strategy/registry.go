// Package strategy defines the contract a trading strategy implements — a
// per-candle evaluation context, a signal collector, and a name-keyed
// registry of constructors — generalizing the teacher's
// pkg/backtest.Strategy interface (Initialize/GenerateSignals/Finalize) to a
// per-candle evaluation loop driven externally by the executor rather than
// by the strategy's own stepping loop.
package strategy

import (
	"context"
	"fmt"

	"github.com/quantedge/stratcore/internal/coreerr"
	"github.com/quantedge/stratcore/internal/indicators"
)

// Strategy is the uniform interface every strategy implements. Construction
// already merges user options over the strategy's own defaults, so
// DefaultOptions reports what construction used, not a mutable knob. A
// strategy may hold private state across candles within one run (entry
// price, trailing peak); the registry hands out a fresh instance per call to
// New so that state never leaks between runs.
type Strategy interface {
	// Description is a human-readable summary, surfaced by InfoOf.
	Description() string

	// DefaultOptions returns the option defaults this instance was
	// constructed with, merged with whatever overrides were supplied.
	DefaultOptions() map[string]interface{}

	// DefineIndicators declares the named indicators this strategy reads
	// from its EvaluationContext. Called once per run before replay.
	DefineIndicators() map[string]indicators.Definition

	// Execute evaluates one candle. It must not mutate ctx and must be
	// idempotent with respect to it. It may block (e.g. awaiting the
	// Signal Validator), hence the explicit context.Context parameter.
	Execute(goCtx context.Context, ctx *EvaluationContext, signal *Signal) error
}

// Constructor builds a Strategy from user-supplied options, merging them
// over the strategy's own defaults via MergeOptions.
type Constructor func(options map[string]interface{}) (Strategy, error)

// Info is the registry's introspection record for one strategy name.
type Info struct {
	Name           string
	Description    string
	DefaultOptions map[string]interface{}
}

var registry = map[string]Constructor{}

// Register adds a constructor under name, following the database/sql-driver
// self-registration idiom the indicator catalog also uses. Strategies call
// this from an init() in their own file.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// IsValid reports whether name is a registered strategy.
func IsValid(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names lists every registered strategy name.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}

// New constructs a fresh Strategy instance by name. Every call returns a new
// instance so private per-run state never leaks across runs.
func New(name string, options map[string]interface{}) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, coreerr.Newf(coreerr.KindValidation, "unknown strategy %q", name)
	}
	s, err := ctor(options)
	if err != nil {
		return nil, coreerr.New(coreerr.KindValidation, fmt.Sprintf("construct strategy %q", name), err)
	}
	return s, nil
}

// InfoOf returns the registry's introspection record for name, constructing
// a transient instance with no overrides to read its description and
// defaults.
func InfoOf(name string) (Info, error) {
	s, err := New(name, nil)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: name, Description: s.Description(), DefaultOptions: s.DefaultOptions()}, nil
}

// MergeOptions overlays user-supplied options on top of defaults without
// mutating either input: recognized keys in options override the default,
// unrecognized keys are carried through. Strategies call this from their
// constructor so DefaultOptions and Execute always see the same merged,
// immutable map.
func MergeOptions(defaults, options map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(options))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range options {
		merged[k] = v
	}
	return merged
}
