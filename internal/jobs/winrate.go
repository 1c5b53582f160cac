package jobs

import "github.com/quantedge/stratcore/internal/backtest"

// WinRateFromBacktestResult is the default Options.WinRateOf for jobs whose
// runner returns a *backtest.Result, the common case for single-period
// jobs. Multi-period jobs returning an aggregate type need their own.
func WinRateFromBacktestResult(result interface{}) (float64, bool) {
	r, ok := result.(*backtest.Result)
	if !ok || r == nil {
		return 0, false
	}
	return r.Summary.WinRatePct, true
}
