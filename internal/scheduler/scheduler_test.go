package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJobPeriodically(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop(true)

	var count int32
	require.NoError(t, s.AddJob(Job{
		Name:   "tick",
		Period: 20 * time.Millisecond,
		Run:    func(ctx context.Context) { atomic.AddInt32(&count, 1) },
	}))

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestSchedulerSkipsTickWhileRunning(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop(true)

	var started, finished int32
	release := make(chan struct{})
	require.NoError(t, s.AddJob(Job{
		Name:   "slow",
		Period: 10 * time.Millisecond,
		Run: func(ctx context.Context) {
			if atomic.AddInt32(&started, 1) == 1 {
				<-release
			}
			atomic.AddInt32(&finished, 1)
		},
	}))

	time.Sleep(80 * time.Millisecond)
	close(release)
	time.Sleep(50 * time.Millisecond)

	assert.Less(t, atomic.LoadInt32(&finished), int32(10))
}

func TestSchedulerPauseResume(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop(true)

	var count int32
	require.NoError(t, s.AddJob(Job{
		Name:   "pausable",
		Period: 15 * time.Millisecond,
		Run:    func(ctx context.Context) { atomic.AddInt32(&count, 1) },
	}))

	time.Sleep(40 * time.Millisecond)
	s.Pause("pausable")
	after := atomic.LoadInt32(&count)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&count))

	s.Resume("pausable")
	time.Sleep(40 * time.Millisecond)
	assert.Greater(t, atomic.LoadInt32(&count), after)
}

func TestSchedulerRemoveJob(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop(true)

	var count int32
	require.NoError(t, s.AddJob(Job{
		Name:   "removable",
		Period: 10 * time.Millisecond,
		Run:    func(ctx context.Context) { atomic.AddInt32(&count, 1) },
	}))

	time.Sleep(30 * time.Millisecond)
	s.RemoveJob("removable")
	after := atomic.LoadInt32(&count)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&count))
}

func TestSchedulerAddJobRejectsDuplicateName(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop(true)

	require.NoError(t, s.AddJob(Job{
		Name:   "dup",
		Period: time.Hour,
		Run:    func(ctx context.Context) {},
	}))

	err := s.AddJob(Job{
		Name:   "dup",
		Period: time.Hour,
		Run:    func(ctx context.Context) {},
	})
	assert.Error(t, err)
}

func TestSchedulerRescheduleRearmsIdleTimer(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop(true)

	var count int32
	require.NoError(t, s.AddJob(Job{
		Name:   "idle",
		Period: time.Hour,
		Run:    func(ctx context.Context) { atomic.AddInt32(&count, 1) },
	}))

	// Without Reschedule re-arming the timer, this job wouldn't fire
	// again for nearly an hour.
	s.Reschedule("idle", 15*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Greater(t, atomic.LoadInt32(&count), int32(0))
}
