package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrentJobs = 1
	defaultTTLHours          = 6
	reaperInterval           = 15 * time.Minute
	profitableWinRateGate    = 60.0
)

// History persists a profitable job's result past the job's own TTL. Gated
// on Options.WinRateOf(result) >= 60%, per §4.7's completion rule.
type History interface {
	Save(ctx context.Context, runGroupID string, jobID string, result interface{}) error
}

// Service runs submitted jobs under a bounded concurrency cap and tracks
// their progress/event history until they are reaped.
type Service struct {
	maxConcurrent int64
	ttl           time.Duration
	history       History
	now           func() time.Time
	winRateOf     func(result interface{}) (float64, bool)

	sem *semaphore.Weighted

	mu      sync.Mutex
	jobs    map[string]*Job
	brokers map[string]*broker

	wg sync.WaitGroup
}

// Options configures a Service; zero values fall back to the spec defaults.
type Options struct {
	MaxConcurrentJobs int
	TTLHours          float64
	History           History
	Now               func() time.Time
	// WinRateOf extracts a result's win_rate_pct for the persistence gate.
	// If nil, WinRateFromBacktestResult is used, so results other than
	// *backtest.Result are never persisted unless an extractor is given.
	WinRateOf func(result interface{}) (float64, bool)
}

// NewService constructs a Service from opts, applying spec defaults for any
// zero field.
func NewService(opts Options) *Service {
	maxConcurrent := opts.MaxConcurrentJobs
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentJobs
	}
	ttlHours := opts.TTLHours
	if ttlHours <= 0 {
		ttlHours = defaultTTLHours
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	winRateOf := opts.WinRateOf
	if winRateOf == nil {
		winRateOf = WinRateFromBacktestResult
	}

	return &Service{
		maxConcurrent: int64(maxConcurrent),
		ttl:           time.Duration(ttlHours * float64(time.Hour)),
		history:       opts.History,
		now:           now,
		winRateOf:     winRateOf,
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		jobs:          map[string]*Job{},
		brokers:       map[string]*broker{},
	}
}

// CreateJob registers a new job and dispatches it to run as soon as a
// concurrency slot is free. runGroupID identifies the submission for
// history grouping (multiple periods of one multi job share one group).
func (s *Service) CreateJob(ctx context.Context, jobType Type, runGroupID string, run Runner) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusQueued,
		Phase:     PhaseQueued,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.brokers[job.ID] = newBroker()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.dispatch(ctx, job, runGroupID, run)

	return job
}

// dispatch blocks on the concurrency semaphore, then runs the job.
func (s *Service) dispatch(ctx context.Context, job *Job, runGroupID string, run Runner) {
	defer s.wg.Done()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.withJob(job.ID, func(j *Job) {
			j.Status = StatusFailed
			j.Phase = PhaseFailed
			j.Error = err.Error()
			s.finish(j)
		})
		return
	}
	defer s.sem.Release(1)

	started := s.now()
	s.withJob(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Phase = PhaseRunning
		j.StartedAt = &started
		j.UpdatedAt = started
	})
	s.publish(job.ID, Event{Type: EventJobStarted, Timestamp: started})

	result, err := s.runSafely(ctx, job, run)

	if err != nil {
		s.withJob(job.ID, func(j *Job) {
			j.Status = StatusFailed
			j.Phase = PhaseFailed
			j.Error = err.Error()
			s.finish(j)
		})
		s.publish(job.ID, Event{Type: EventJobFailed, Timestamp: s.now(), Data: err.Error()})
		return
	}

	s.withJob(job.ID, func(j *Job) {
		j.Phase = PhaseSaving
		j.ProgressPercent = 92
	})
	s.persist(ctx, job.ID, runGroupID, result)

	s.withJob(job.ID, func(j *Job) {
		j.Status = StatusDone
		j.Phase = PhaseDone
		j.ProgressPercent = 100
		j.Result = result
		s.finish(j)
	})
	s.publish(job.ID, Event{Type: EventJobDone, Timestamp: s.now()})
}

// runSafely isolates the runner so a panicking job fails cleanly instead of
// taking the service down.
func (s *Service) runSafely(ctx context.Context, job *Job, run Runner) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	rc := &runnerContext{svc: s, job: job}
	return run(ctx, rc)
}

// persist appends a successful result to history when its win rate clears
// the 60% gate; below-threshold results are discarded after the job's TTL
// like any other result.
func (s *Service) persist(ctx context.Context, jobID, runGroupID string, result interface{}) {
	if s.history == nil || s.winRateOf == nil {
		return
	}
	winRate, ok := s.winRateOf(result)
	if !ok || winRate < profitableWinRateGate {
		return
	}
	if err := s.history.Save(ctx, runGroupID, jobID, result); err != nil {
		log.Warn().Err(err).Str("job", jobID).Msg("jobs: failed to persist profitable result")
	}
}

func (s *Service) finish(j *Job) {
	finished := s.now()
	j.FinishedAt = &finished
	j.UpdatedAt = finished
}

// withJob applies fn to the job under the service lock, a no-op if the job
// id is unknown (e.g. already reaped).
func (s *Service) withJob(id string, fn func(j *Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

func (s *Service) publish(id string, evt Event) {
	s.mu.Lock()
	b, ok := s.brokers[id]
	s.mu.Unlock()
	if ok {
		b.publish(evt)
	}
}

// Get returns a snapshot copy of the job, or false if unknown.
func (s *Service) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Subscribe registers a listener on a job's event stream. Returns false if
// the job id is unknown. The unsubscribe func must be called when the
// caller is done listening.
func (s *Service) Subscribe(id string) (<-chan Event, func(), bool) {
	s.mu.Lock()
	b, ok := s.brokers[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	ch, unsub := b.subscribe()
	return ch, unsub, true
}

// RunReaper blocks until ctx is cancelled, removing finished jobs whose TTL
// has elapsed every 15 minutes.
func (s *Service) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

func (s *Service) reap() {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, j := range s.jobs {
		if j.FinishedAt == nil || j.FinishedAt.After(cutoff) {
			continue
		}
		if b, ok := s.brokers[id]; ok {
			b.closeAll()
			delete(s.brokers, id)
		}
		delete(s.jobs, id)
	}
}

// Wait blocks until every dispatched job has finished running. Intended for
// tests and graceful shutdown, not the live-serving path.
func (s *Service) Wait() {
	s.wg.Wait()
}
