// Package jobs runs asynchronous back-test jobs under a concurrency cap,
// reporting progress and a typed event stream per job, grounded on
// internal/backtest/job.go's job-record shape (CreateJob/GetJob/
// UpdateJobStatus/SaveResults) generalized from a single DB-persisted
// record into an in-memory job registry with an external persistence hook
// for the few fields (profitable result history) that still need to
// survive past a job's TTL.
package jobs

import (
	"context"
	"time"
)

// Type distinguishes a single-period job from a multi-period sweep.
type Type string

const (
	TypeSingle Type = "single"
	TypeMulti  Type = "multi"
)

// Status is the job's coarse lifecycle state.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Phase is the job's fine-grained progress state.
type Phase string

const (
	PhaseQueued  Phase = "queued"
	PhaseRunning Phase = "running"
	PhaseSaving  Phase = "saving"
	PhaseDone    Phase = "done"
	PhaseFailed  Phase = "failed"
)

// PeriodState is one period's progress within a multi-period job.
type PeriodState string

const (
	PeriodQueued  PeriodState = "queued"
	PeriodRunning PeriodState = "running"
	PeriodDone    PeriodState = "done"
	PeriodFailed  PeriodState = "failed"
)

// Snapshot is the progress detail for a multi-period job.
type Snapshot struct {
	TotalPeriods     int
	CompletedPeriods int
	PeriodStates     map[string]PeriodState
	PartialSummaries map[string]interface{}
	FailedPeriods    map[string]string
}

// Job is one back-test run tracked by the service.
type Job struct {
	ID              string
	Type            Type
	Status          Status
	Phase           Phase
	ProgressPercent int
	Message         string
	CreatedAt       time.Time
	StartedAt       *time.Time
	UpdatedAt       time.Time
	FinishedAt      *time.Time
	Error           string
	Result          interface{}
	Snapshot        Snapshot
}

// EventType names the kind of record published on a job's event channel.
type EventType string

const (
	EventJobStarted       EventType = "job_started"
	EventJobProgress      EventType = "job_progress"
	EventTimeframeStarted EventType = "timeframe_started"
	EventTimeframeDone    EventType = "timeframe_done"
	EventTimeframeFailed  EventType = "timeframe_failed"
	EventJobDone          EventType = "job_done"
	EventJobFailed        EventType = "job_failed"
)

// Event is one record on a job's subscription channel.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// RunnerContext is the handle a job's runner function uses to report
// progress back to the service. Implementations must be safe for the
// runner to call from whatever goroutine it runs on.
type RunnerContext interface {
	SetProgress(phase Phase, percent int, message string)
	EmitEvent(eventType EventType, data interface{})
	InitPeriods(periods []string)
	SetPeriodState(period string, state PeriodState, message string)
	SetPeriodSummary(period string, summary interface{})
	SetPeriodDetail(period string, detail interface{})
	SetPeriodFailure(period string, errMsg string)
}

// Runner is the job body: given a cancellable context and a reporting
// handle, it does the work and returns the final result or an error.
type Runner func(ctx context.Context, rc RunnerContext) (interface{}, error)
