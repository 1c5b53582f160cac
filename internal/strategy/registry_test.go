package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantedge/stratcore/internal/indicators"
)

type stubStrategy struct {
	defaults map[string]interface{}
}

func newStubStrategy(options map[string]interface{}) (Strategy, error) {
	return &stubStrategy{defaults: MergeOptions(map[string]interface{}{"length": 14}, options)}, nil
}

func (s *stubStrategy) Description() string                  { return "stub" }
func (s *stubStrategy) DefaultOptions() map[string]interface{} { return s.defaults }
func (s *stubStrategy) DefineIndicators() map[string]indicators.Definition {
	return map[string]indicators.Definition{"rsi": {Kind: indicators.KindRSI}}
}
func (s *stubStrategy) Execute(_ context.Context, _ *EvaluationContext, signal *Signal) error {
	signal.Long()
	return nil
}

func init() {
	Register("stub_for_tests", newStubStrategy)
}

func TestRegistry_IsValidAndNames(t *testing.T) {
	assert.True(t, IsValid("stub_for_tests"))
	assert.False(t, IsValid("does_not_exist"))
	assert.Contains(t, Names(), "stub_for_tests")
}

func TestRegistry_New_UnknownName(t *testing.T) {
	_, err := New("does_not_exist", nil)
	assert.Error(t, err)
}

func TestRegistry_InfoOf(t *testing.T) {
	info, err := InfoOf("stub_for_tests")
	require.NoError(t, err)
	assert.Equal(t, "stub_for_tests", info.Name)
	assert.Equal(t, "stub", info.Description)
	assert.Equal(t, 14, info.DefaultOptions["length"])
}

func TestMergeOptions_OverridesAndCarriesThrough(t *testing.T) {
	merged := MergeOptions(map[string]interface{}{"a": 1, "b": 2}, map[string]interface{}{"b": 3, "c": 4})
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 3, merged["b"])
	assert.Equal(t, 4, merged["c"])
}
