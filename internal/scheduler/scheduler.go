// Package scheduler runs a set of named jobs on independent periods,
// each with concurrency 1: if a job's previous run is still in flight
// when its next tick comes due, that tick is skipped rather than
// queued (spec.md §5). Grounded on the teacher's ticker-loop Scheduler
// in structure (Start/Stop, a zerolog component logger, a stop
// channel), generalized from one shared ticker to one timer per job
// since each job here has its own independently reschedulable period.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/OpenTouch/night-watch/internal/nwlog"
	"github.com/OpenTouch/night-watch/internal/nwmetrics"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work: a name, a period, and the function
// to run on each tick.
type Job struct {
	Name   string
	Period time.Duration
	Run    func(ctx context.Context)
}

type scheduledJob struct {
	job     Job
	timer   *time.Timer
	running int32 // atomic
	paused  bool
	mu      sync.Mutex
}

// Scheduler owns a set of independently-periodic jobs.
type Scheduler struct {
	logger zerolog.Logger

	mu     sync.Mutex
	jobs   map[string]*scheduledJob
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. Jobs are not started until AddJob is called
// after Start.
func New() *Scheduler {
	return &Scheduler{
		logger: nwlog.WithComponent("scheduler"),
		jobs:   make(map[string]*scheduledJob),
	}
}

// Start prepares the scheduler to accept jobs. Call once before any
// AddJob.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

// Stop cancels every scheduled job. If wait is true, Stop blocks until
// any currently in-flight job run has returned.
func (s *Scheduler) Stop(wait bool) {
	s.mu.Lock()
	cancel := s.cancel
	jobs := make([]*scheduledJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, j := range jobs {
		j.mu.Lock()
		if j.timer != nil {
			j.timer.Stop()
		}
		j.mu.Unlock()
	}
	if wait {
		s.wg.Wait()
	}
}

// AddJob schedules job to run every job.Period, starting after the
// first tick. Returns a SchedulerError if a job with this name is
// already scheduled; callers must RemoveJob (or RemoveAll) first.
func (s *Scheduler) AddJob(job Job) error {
	sj := &scheduledJob{job: job}

	s.mu.Lock()
	if _, exists := s.jobs[job.Name]; exists {
		s.mu.Unlock()
		return nwerrors.New(nwerrors.KindSchedulerError, "job %q is already scheduled", job.Name)
	}
	s.jobs[job.Name] = sj
	ctx := s.ctx
	s.mu.Unlock()

	s.arm(ctx, sj)
	return nil
}

// RemoveJob stops and forgets a scheduled job.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	delete(s.jobs, name)
	s.mu.Unlock()
	if !ok {
		return
	}
	sj.mu.Lock()
	if sj.timer != nil {
		sj.timer.Stop()
	}
	sj.mu.Unlock()
}

// RemoveAll stops and forgets every scheduled job.
func (s *Scheduler) RemoveAll() {
	s.mu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.Unlock()
	for _, name := range names {
		s.RemoveJob(name)
	}
}

// Pause suspends a job's ticking without forgetting it; its timer is
// stopped and will not be re-armed until Resume.
func (s *Scheduler) Pause(name string) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	sj.mu.Lock()
	sj.paused = true
	if sj.timer != nil {
		sj.timer.Stop()
	}
	sj.mu.Unlock()
}

// Resume re-arms a paused job at its current period.
func (s *Scheduler) Resume(name string) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	ctx := s.ctx
	s.mu.Unlock()
	if !ok {
		return
	}
	sj.mu.Lock()
	sj.paused = false
	sj.mu.Unlock()
	s.arm(ctx, sj)
}

// Reschedule changes a job's period. If the job is currently idle
// (waiting on its armed timer rather than mid-run), its timer is reset
// immediately so the new period governs the next fire, per spec.md
// §4.1's "next fire is now + period"; a run already in flight picks up
// the new period when it re-arms itself afterward.
func (s *Scheduler) Reschedule(name string, period time.Duration) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	sj.mu.Lock()
	sj.job.Period = period
	if sj.timer != nil && atomic.LoadInt32(&sj.running) == 0 {
		sj.timer.Reset(period)
	}
	sj.mu.Unlock()
}

func (s *Scheduler) arm(ctx context.Context, sj *scheduledJob) {
	if ctx == nil {
		return
	}
	sj.mu.Lock()
	if sj.paused {
		sj.mu.Unlock()
		return
	}
	period := sj.job.Period
	sj.timer = time.AfterFunc(period, func() { s.fire(ctx, sj) })
	sj.mu.Unlock()
}

func (s *Scheduler) fire(ctx context.Context, sj *scheduledJob) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	if !atomic.CompareAndSwapInt32(&sj.running, 0, 1) {
		nwmetrics.SchedulerTicksSkipped.WithLabelValues(sj.job.Name).Inc()
		s.logger.Warn().Str("job", sj.job.Name).Msg("previous run still in flight, skipping this tick")
		s.arm(ctx, sj)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer atomic.StoreInt32(&sj.running, 0)
		defer s.arm(ctx, sj)
		sj.job.Run(ctx)
	}()
}
