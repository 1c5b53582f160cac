package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJob_RunsAndCompletes(t *testing.T) {
	svc := NewService(Options{})

	job := svc.CreateJob(context.Background(), TypeSingle, "group-1", func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		rc.SetProgress(PhaseRunning, 50, "halfway")
		return "ok", nil
	})
	svc.Wait()

	got, ok := svc.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, PhaseDone, got.Phase)
	assert.Equal(t, 100, got.ProgressPercent)
	assert.Equal(t, "ok", got.Result)
	require.NotNil(t, got.FinishedAt)
}

func TestCreateJob_FailureIsRecorded(t *testing.T) {
	svc := NewService(Options{})

	job := svc.CreateJob(context.Background(), TypeSingle, "group-1", func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		return nil, errors.New("boom")
	})
	svc.Wait()

	got, ok := svc.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestCreateJob_PanicBecomesFailure(t *testing.T) {
	svc := NewService(Options{})

	job := svc.CreateJob(context.Background(), TypeSingle, "group-1", func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		panic("bad state")
	})
	svc.Wait()

	got, ok := svc.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "bad state")
}

func TestCreateJob_ConcurrencyCapSerializes(t *testing.T) {
	svc := NewService(Options{MaxConcurrentJobs: 1})

	var running, maxSeen int
	start := make(chan struct{})
	release := make(chan struct{})

	track := func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		running++
		if running > maxSeen {
			maxSeen = running
		}
		<-release
		running--
		return nil, nil
	}

	svc.CreateJob(context.Background(), TypeSingle, "g", track)
	svc.CreateJob(context.Background(), TypeSingle, "g", track)

	close(start)
	time.Sleep(20 * time.Millisecond)
	close(release)
	svc.Wait()

	assert.LessOrEqual(t, maxSeen, 1)
}

func TestSubscribe_ReceivesJobDoneEvent(t *testing.T) {
	svc := NewService(Options{})

	job := svc.CreateJob(context.Background(), TypeMulti, "g", func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		rc.InitPeriods([]string{"1h", "4h"})
		rc.SetPeriodState("1h", PeriodRunning, "")
		rc.SetPeriodState("1h", PeriodDone, "")
		rc.SetPeriodState("4h", PeriodRunning, "")
		rc.SetPeriodState("4h", PeriodDone, "")
		return "ok", nil
	})

	ch, unsub, ok := svc.Subscribe(job.ID)
	require.True(t, ok)
	defer unsub()

	svc.Wait()

	var sawDone bool
	for i := 0; i < 20; i++ {
		select {
		case evt := <-ch:
			if evt.Type == EventJobDone {
				sawDone = true
			}
		case <-time.After(50 * time.Millisecond):
		}
		if sawDone {
			break
		}
	}
	assert.True(t, sawDone)
}

func TestSubscribe_UnknownJobReturnsFalse(t *testing.T) {
	svc := NewService(Options{})
	_, _, ok := svc.Subscribe("does-not-exist")
	assert.False(t, ok)
}

func TestReap_RemovesExpiredJobs(t *testing.T) {
	now := time.Unix(0, 0)
	svc := NewService(Options{TTLHours: 1, Now: func() time.Time { return now }})

	job := svc.CreateJob(context.Background(), TypeSingle, "g", func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		return "ok", nil
	})
	svc.Wait()

	now = now.Add(2 * time.Hour)
	svc.reap()

	_, ok := svc.Get(job.ID)
	assert.False(t, ok)
}

type stubHistory struct {
	saved []string
}

func (h *stubHistory) Save(ctx context.Context, runGroupID, jobID string, result interface{}) error {
	h.saved = append(h.saved, jobID)
	return nil
}

func TestPersist_GatesOnWinRate(t *testing.T) {
	hist := &stubHistory{}
	svc := NewService(Options{
		History: hist,
		WinRateOf: func(result interface{}) (float64, bool) {
			return result.(float64), true
		},
	})

	svc.CreateJob(context.Background(), TypeSingle, "g", func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		return 40.0, nil
	})
	svc.CreateJob(context.Background(), TypeSingle, "g", func(ctx context.Context, rc RunnerContext) (interface{}, error) {
		return 75.0, nil
	})
	svc.Wait()

	assert.Len(t, hist.saved, 1)
}
