// Package jobserver exposes C7's internal/jobs.Service over HTTP: submit a
// back-test (single period or a multi-period sweep), poll its status, and
// fetch its result once done. Grounded on internal/api/backtest_handler.go's
// gin JSON-binding/response idiom, generalized from the teacher's
// DB-resident JobManager to the in-memory internal/jobs.Service this core
// already built.
package jobserver

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quantedge/stratcore/internal/backtest"
	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/candles"
	"github.com/quantedge/stratcore/internal/jobs"
	"github.com/quantedge/stratcore/internal/strategy"
	"github.com/quantedge/stratcore/internal/validator"
)

const (
	minPeriods        = 1
	maxPeriods        = 5
	defaultMultiConcy = 2
)

// BacktestDeps are the collaborators every submitted run needs, shared
// across requests.
type BacktestDeps struct {
	Repo             candles.Repository
	Source           candles.MarketDataSource
	ValidatorBackend validator.Validator
}

// Server wires the C7 job service to an HTTP surface.
type Server struct {
	jobs *jobs.Service
	deps BacktestDeps
}

// New constructs a Server over a job service and shared back-test
// dependencies.
func New(svc *jobs.Service, deps BacktestDeps) *Server {
	return &Server{jobs: svc, deps: deps}
}

// Register attaches this server's routes to engine.
func (s *Server) Register(engine *gin.Engine) {
	engine.POST("/jobs", s.submitSingle)
	engine.POST("/jobs/multi", s.submitMulti)
	engine.GET("/jobs/:id", s.status)
	engine.GET("/jobs/:id/result", s.result)
}

// singleRequest is §6's single back-test request shape.
type singleRequest struct {
	Exchange       string                 `json:"exchange" binding:"required"`
	Symbol         string                 `json:"symbol" binding:"required"`
	Period         string                 `json:"period" binding:"required"`
	Hours          float64                `json:"hours" binding:"required,gt=0"`
	Strategy       string                 `json:"strategy" binding:"required"`
	InitialCapital float64                `json:"initialCapital" binding:"required,gt=0"`
	Options        map[string]interface{} `json:"options"`
	UseAI          bool                   `json:"useAi"`
}

func (r singleRequest) validate() error {
	if !candle.Valid(candle.Period(r.Period)) {
		return fmt.Errorf("unknown period %q", r.Period)
	}
	if math.IsNaN(r.Hours) || math.IsInf(r.Hours, 0) {
		return fmt.Errorf("hours must be finite")
	}
	if !strategy.IsValid(r.Strategy) {
		return fmt.Errorf("unknown strategy %q", r.Strategy)
	}
	return nil
}

func (s *Server) submitSingle(c *gin.Context) {
	var req singleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runGroupID := uuid.NewString()
	job := s.jobs.CreateJob(c.Request.Context(), jobs.TypeSingle, runGroupID, s.singleRunner(req))
	c.JSON(http.StatusAccepted, handleResponse(job.ID))
}

// singleRunner closes over a validated request and produces one
// backtest.Result, reporting progress at start and completion.
func (s *Server) singleRunner(req singleRequest) jobs.Runner {
	return func(ctx context.Context, rc jobs.RunnerContext) (interface{}, error) {
		rc.SetProgress(jobs.PhaseRunning, 5, "fetching candles")

		strat, err := strategy.New(req.Strategy, req.Options)
		if err != nil {
			return nil, err
		}

		params := backtest.Params{
			Exchange:       req.Exchange,
			Symbol:         strings.ToUpper(req.Symbol),
			Period:         candle.Period(req.Period),
			Hours:          req.Hours,
			InitialCapital: req.InitialCapital,
			UseAI:          req.UseAI,
		}
		deps := backtest.Deps{Repo: s.deps.Repo, Source: s.deps.Source}
		if req.UseAI {
			deps.ValidatorBackend = s.deps.ValidatorBackend
		}

		result, err := backtest.Run(ctx, strat, req.Strategy, params, deps)
		if err != nil {
			return nil, err
		}

		rc.SetProgress(jobs.PhaseRunning, 90, "backtest complete")
		return result, nil
	}
}

// multiRequest is §6's multi back-test request shape: the same parameters
// fanned out across up to 5 periods.
type multiRequest struct {
	Exchange       string                 `json:"exchange" binding:"required"`
	Symbol         string                 `json:"symbol" binding:"required"`
	Periods        []string               `json:"periods" binding:"required"`
	Hours          float64                `json:"hours" binding:"required,gt=0"`
	Strategy       string                 `json:"strategy" binding:"required"`
	InitialCapital float64                `json:"initialCapital" binding:"required,gt=0"`
	Options        map[string]interface{} `json:"options"`
	UseAI          bool                   `json:"useAi"`
	Concurrency    int                    `json:"multiBacktestConcurrency"`
}

func (r multiRequest) validate() error {
	if len(r.Periods) < minPeriods || len(r.Periods) > maxPeriods {
		return fmt.Errorf("periods must have between %d and %d entries", minPeriods, maxPeriods)
	}
	for _, p := range r.Periods {
		if !candle.Valid(candle.Period(p)) {
			return fmt.Errorf("unknown period %q", p)
		}
	}
	if !strategy.IsValid(r.Strategy) {
		return fmt.Errorf("unknown strategy %q", r.Strategy)
	}
	return nil
}

func (r multiRequest) concurrency() int {
	if r.Concurrency < 1 || r.Concurrency > maxPeriods {
		return defaultMultiConcy
	}
	return r.Concurrency
}

func (s *Server) submitMulti(c *gin.Context) {
	var req multiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runGroupID := uuid.NewString()
	job := s.jobs.CreateJob(c.Request.Context(), jobs.TypeMulti, runGroupID, s.multiRunner(req))
	c.JSON(http.StatusAccepted, handleResponse(job.ID))
}

// multiRunner runs req.Periods through the same strategy/symbol with
// bounded fan-out, per §4.7's 5+floor(completed/total*85) progress curve.
func (s *Server) multiRunner(req multiRequest) jobs.Runner {
	return func(ctx context.Context, rc jobs.RunnerContext) (interface{}, error) {
		rc.InitPeriods(req.Periods)

		total := len(req.Periods)
		var (
			mu        sync.Mutex
			completed int
			results   = map[string]*backtest.Result{}
		)
		advance := func() {
			mu.Lock()
			completed++
			pct := 5 + int(math.Floor(float64(completed)/float64(total)*85))
			mu.Unlock()
			rc.SetProgress(jobs.PhaseRunning, pct, fmt.Sprintf("%d/%d periods complete", completed, total))
		}

		sem := make(chan struct{}, req.concurrency())
		var wg sync.WaitGroup
		for _, p := range req.Periods {
			period := p
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				s.runPeriod(ctx, rc, req, period, &mu, results)
				advance()
			}()
		}
		wg.Wait()

		return results, nil
	}
}

func (s *Server) runPeriod(ctx context.Context, rc jobs.RunnerContext, req multiRequest, period string, mu *sync.Mutex, results map[string]*backtest.Result) {
	rc.SetPeriodState(period, jobs.PeriodRunning, "")

	strat, err := strategy.New(req.Strategy, req.Options)
	if err != nil {
		rc.SetPeriodFailure(period, err.Error())
		return
	}

	params := backtest.Params{
		Exchange:       req.Exchange,
		Symbol:         strings.ToUpper(req.Symbol),
		Period:         candle.Period(period),
		Hours:          req.Hours,
		InitialCapital: req.InitialCapital,
		UseAI:          req.UseAI,
	}
	deps := backtest.Deps{Repo: s.deps.Repo, Source: s.deps.Source}
	if req.UseAI {
		deps.ValidatorBackend = s.deps.ValidatorBackend
	}

	result, err := backtest.Run(ctx, strat, req.Strategy, params, deps)
	if err != nil {
		rc.SetPeriodFailure(period, err.Error())
		return
	}

	mu.Lock()
	results[period] = result
	mu.Unlock()
	rc.SetPeriodSummary(period, result.Summary)
	rc.SetPeriodState(period, jobs.PeriodDone, "")
}

func (s *Server) status(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) result(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if job.Status != jobs.StatusDone {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is %s, not done", job.Status)})
		return
	}
	c.JSON(http.StatusOK, job.Result)
}

// handleResponse is §6's job handle response: {job_id, status_url, result_url}.
func handleResponse(jobID string) gin.H {
	return gin.H{
		"job_id":     jobID,
		"status_url": fmt.Sprintf("/jobs/%s", jobID),
		"result_url": fmt.Sprintf("/jobs/%s/result", jobID),
	}
}
