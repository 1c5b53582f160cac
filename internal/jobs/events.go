package jobs

import "sync"

const eventBufferSize = 64

// broker fans out one job's events to any number of subscribers. Late
// subscribers see only events published after they subscribe; the job's
// current snapshot (held separately on the Job record) covers the gap.
type broker struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newBroker() *broker {
	return &broker{subs: map[int]chan Event{}}
}

// subscribe registers a new listener, returning its channel and an
// unsubscribe function.
func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, eventBufferSize)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// publish is fire-and-forget: a slow subscriber whose buffer is full drops
// the event rather than blocking the job.
func (b *broker) publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// runnerContext is the concrete RunnerContext handed to a job's Runner. It
// mutates the job record under the service's lock and publishes a matching
// event for every state change.
type runnerContext struct {
	svc *Service
	job *Job
}

func (r *runnerContext) SetProgress(phase Phase, percent int, message string) {
	r.svc.withJob(r.job.ID, func(j *Job) {
		j.Phase = phase
		j.ProgressPercent = percent
		j.Message = message
		j.UpdatedAt = r.svc.now()
	})
	r.EmitEvent(EventJobProgress, map[string]interface{}{"phase": phase, "percent": percent, "message": message})
}

func (r *runnerContext) EmitEvent(eventType EventType, data interface{}) {
	r.svc.publish(r.job.ID, Event{Type: eventType, Timestamp: r.svc.now(), Data: data})
}

func (r *runnerContext) InitPeriods(periods []string) {
	r.svc.withJob(r.job.ID, func(j *Job) {
		j.Snapshot.TotalPeriods = len(periods)
		j.Snapshot.CompletedPeriods = 0
		j.Snapshot.PeriodStates = make(map[string]PeriodState, len(periods))
		j.Snapshot.PartialSummaries = map[string]interface{}{}
		j.Snapshot.FailedPeriods = map[string]string{}
		for _, p := range periods {
			j.Snapshot.PeriodStates[p] = PeriodQueued
		}
		j.UpdatedAt = r.svc.now()
	})
}

func (r *runnerContext) SetPeriodState(period string, state PeriodState, message string) {
	var completed, total int
	r.svc.withJob(r.job.ID, func(j *Job) {
		prev, had := j.Snapshot.PeriodStates[period]
		j.Snapshot.PeriodStates[period] = state
		if state == PeriodDone && (!had || prev != PeriodDone) {
			j.Snapshot.CompletedPeriods++
		}
		completed = j.Snapshot.CompletedPeriods
		total = j.Snapshot.TotalPeriods
		j.UpdatedAt = r.svc.now()
	})

	switch state {
	case PeriodRunning:
		r.EmitEvent(EventTimeframeStarted, map[string]interface{}{"period": period, "message": message})
	case PeriodDone:
		r.EmitEvent(EventTimeframeDone, map[string]interface{}{"period": period, "message": message})
	case PeriodFailed:
		r.EmitEvent(EventTimeframeFailed, map[string]interface{}{"period": period, "message": message})
	}

	if total > 0 {
		percent := 5 + int(float64(completed)/float64(total)*85)
		r.SetProgress(PhaseRunning, percent, message)
	}
}

func (r *runnerContext) SetPeriodSummary(period string, summary interface{}) {
	r.svc.withJob(r.job.ID, func(j *Job) {
		j.Snapshot.PartialSummaries[period] = summary
		j.UpdatedAt = r.svc.now()
	})
}

func (r *runnerContext) SetPeriodDetail(period string, detail interface{}) {
	r.svc.withJob(r.job.ID, func(j *Job) {
		if j.Snapshot.PartialSummaries == nil {
			j.Snapshot.PartialSummaries = map[string]interface{}{}
		}
		j.Snapshot.PartialSummaries[period] = detail
		j.UpdatedAt = r.svc.now()
	})
}

func (r *runnerContext) SetPeriodFailure(period string, errMsg string) {
	r.svc.withJob(r.job.ID, func(j *Job) {
		j.Snapshot.FailedPeriods[period] = errMsg
		j.UpdatedAt = r.svc.now()
	})
	r.SetPeriodState(period, PeriodFailed, errMsg)
}
