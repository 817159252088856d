package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	s := New(20*time.Millisecond, zerolog.Nop())
	var runs atomic.Int32

	require.NoError(t, s.Start("tick", func(ctx context.Context) {
		runs.Add(1)
	}))
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerRunsDoNotOverlap(t *testing.T) {
	s := New(10*time.Millisecond, zerolog.Nop())
	var running, overlaps, runs atomic.Int32

	require.NoError(t, s.Start("slow", func(ctx context.Context) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
		runs.Add(1)
	}))

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	assert.Zero(t, overlaps.Load())
}

func TestSchedulerStopCancelsRun(t *testing.T) {
	s := New(time.Hour, zerolog.Nop())
	started := make(chan struct{})
	cancelled := make(chan struct{})

	require.NoError(t, s.Start("blocking", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}))

	<-started
	go s.Stop()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not cancelled on stop")
	}
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	s := New(0, zerolog.Nop())
	assert.Error(t, s.Start("never", func(context.Context) {}))
}
