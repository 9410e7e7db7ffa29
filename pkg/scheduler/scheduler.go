package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"timerkit/pkg/timerq"
)

// JobFunc is a scheduler job body.
type JobFunc func(ctx context.Context) error

// JobID identifies a recurring job within one scheduler.
type JobID int

// OverlapPolicy controls what happens when an occurrence fires while the
// previous one is still running.
type OverlapPolicy int

const (
	// AllowOverlap lets occurrences run concurrently (default).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning drops the occurrence if the job is already running.
	SkipIfRunning
	// DelayIfRunning waits for the previous occurrence to finish.
	DelayIfRunning
)

// JobOptions tunes a single recurring job.
type JobOptions struct {
	// Name labels the job in logs and hooks (optional).
	Name string
	// Timeout bounds one occurrence's execution (optional).
	Timeout time.Duration
	// OverlapPolicy controls concurrent occurrences.
	OverlapPolicy OverlapPolicy
}

// JobHooks are optional observability callbacks.
type JobHooks struct {
	OnJobStart  func(jobName string)
	OnJobFinish func(jobName string, duration time.Duration, err error)
	OnJobError  func(jobName string, err error)
}

// Config configures a Scheduler.
type Config struct {
	Logger *slog.Logger
	Hooks  JobHooks
}

// cronParser accepts six fields with a seconds column, plus descriptors
// like @hourly and @every.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// intervalSchedule fires a fixed duration after each activation. Unlike
// cron.Every it keeps sub-second resolution.
type intervalSchedule time.Duration

func (s intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(s))
}

type jobWrapper struct {
	job     JobFunc
	options JobOptions
	running sync.Mutex // overlap control
}

type scheduledJob struct {
	id       JobID
	schedule cron.Schedule
	wrapper  *jobWrapper
	timerUID timerq.UID
	armed    bool
	removed  bool
}

// Scheduler manages recurring jobs. Each job's next occurrence lives as a
// one-shot entry on the timer queue; firing re-arms the one after.
type Scheduler struct {
	queue  *timerq.TimerQueue
	logger *slog.Logger
	hooks  JobHooks
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[JobID]*scheduledJob
	nextID  JobID
	started bool

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a scheduler over queue with a background parent context.
// Panics if queue is nil.
func New(queue *timerq.TimerQueue, cfg Config) *Scheduler {
	return NewWithContext(context.Background(), queue, cfg)
}

// NewWithContext creates a scheduler whose lifetime is bounded by
// parentCtx: cancelling it stops the scheduler.
func NewWithContext(parentCtx context.Context, queue *timerq.TimerQueue, cfg Config) *Scheduler {
	if queue == nil {
		panic("scheduler: nil timer queue")
	}
	ctx, cancel := context.WithCancel(parentCtx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		queue:  queue,
		logger: logger,
		hooks:  cfg.Hooks,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[JobID]*scheduledJob),
		nextID: 1,
	}
}

// AddCronJob registers a job on a cron schedule with default options.
// Schedule examples:
//   - "0 30 * * * *" - at minute 30 of every hour
//   - "@hourly" - every hour
//   - "@every 5m" - every 5 minutes
func (s *Scheduler) AddCronJob(schedule string, job JobFunc) (JobID, error) {
	return s.AddCronJobWithOptions(schedule, job, JobOptions{})
}

// AddCronJobWithOptions registers a job on a cron schedule.
func (s *Scheduler) AddCronJobWithOptions(schedule string, job JobFunc, opts JobOptions) (JobID, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		s.logger.Error("failed to parse cron schedule", "schedule", schedule, "name", opts.Name, "error", err)
		return 0, fmt.Errorf("scheduler: parse schedule %q: %w", schedule, err)
	}
	id := s.add(sched, job, opts)
	s.logger.Info("cron job added", "schedule", schedule, "name", opts.Name, "overlap_policy", opts.OverlapPolicy, "id", id)
	return id, nil
}

// AddIntervalJob registers a fixed-interval job with default options.
func (s *Scheduler) AddIntervalJob(interval time.Duration, job JobFunc) (JobID, error) {
	return s.AddIntervalJobWithOptions(interval, job, JobOptions{})
}

// AddIntervalJobWithOptions registers a fixed-interval job. The next
// occurrence is measured from the previous occurrence's fire time.
func (s *Scheduler) AddIntervalJobWithOptions(interval time.Duration, job JobFunc, opts JobOptions) (JobID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("scheduler: interval must be positive, got %v", interval)
	}
	id := s.add(intervalSchedule(interval), job, opts)
	s.logger.Info("interval job added", "interval", interval, "name", opts.Name, "overlap_policy", opts.OverlapPolicy, "id", id)
	return id, nil
}

func (s *Scheduler) add(sched cron.Schedule, job JobFunc, opts JobOptions) JobID {
	j := &scheduledJob{
		schedule: sched,
		wrapper:  &jobWrapper{job: job, options: opts},
	}

	s.mu.Lock()
	j.id = s.nextID
	s.nextID++
	s.jobs[j.id] = j
	if s.started {
		s.armLocked(j)
	}
	s.mu.Unlock()
	return j.id
}

// Remove unregisters a job and cancels its armed occurrence. Returns false
// for an unknown id.
func (s *Scheduler) Remove(id JobID) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	j.removed = true
	delete(s.jobs, id)
	armed := j.armed
	uid := j.timerUID
	s.mu.Unlock()

	if armed {
		s.queue.Cancel(uid)
	}
	s.logger.Info("job removed", "id", id, "name", j.wrapper.options.Name)
	return true
}

// Start arms every registered job. Idempotent.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler")
		s.mu.Lock()
		s.started = true
		for _, j := range s.jobs {
			s.armLocked(j)
		}
		s.mu.Unlock()

		go func() {
			<-s.ctx.Done()
			s.logger.Info("stopping scheduler due to context cancellation")
			s.stopOnce.Do(s.stop)
		}()
	})
}

// Stop disarms all jobs and waits for in-flight occurrences to finish.
func (s *Scheduler) Stop() {
	if !s.IsRunning() {
		return
	}
	s.logger.Info("stopping scheduler")
	s.cancel()
	s.stopOnce.Do(s.stop)
}

// StopContext stops the scheduler but bounds the wait for in-flight
// occurrences by ctx. Shutdown completes regardless; the error only
// reports that the deadline passed first.
func (s *Scheduler) StopContext(ctx context.Context) error {
	if !s.IsRunning() {
		return nil
	}
	s.logger.Info("stopping scheduler with deadline")
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped gracefully within deadline")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded, but shutdown will complete")
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	s.started = false
	for _, j := range s.jobs {
		j.removed = true
		if j.armed {
			s.queue.Cancel(j.timerUID)
		}
	}
	s.jobs = make(map[JobID]*scheduledJob)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	if s.ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// armLocked enqueues the job's next occurrence. Caller holds s.mu.
func (s *Scheduler) armLocked(j *scheduledJob) {
	if j.removed {
		return
	}
	next := j.schedule.Next(time.Now())
	handle, err := s.queue.Enqueue(next, func() (any, error) {
		s.fire(j)
		return nil, nil
	})
	if err != nil {
		s.logger.Error("failed to arm job occurrence", "id", j.id, "name", j.wrapper.options.Name, "error", err)
		j.armed = false
		return
	}
	j.timerUID = handle.UID
	j.armed = true
}

// fire runs on the queue's executor. The next occurrence is armed before
// the body runs so a slow job does not stretch the cadence; overlap is
// governed by the job's policy instead.
func (s *Scheduler) fire(j *scheduledJob) {
	s.mu.Lock()
	j.armed = false
	if j.removed || !s.started {
		s.mu.Unlock()
		return
	}
	s.armLocked(j)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.runJobWrapper(j.wrapper)
}

// runJobWrapper executes one occurrence honoring its options and hooks.
func (s *Scheduler) runJobWrapper(wrapper *jobWrapper) {
	jobName := wrapper.options.Name
	if jobName == "" {
		jobName = "unnamed"
	}

	switch wrapper.options.OverlapPolicy {
	case SkipIfRunning:
		if !wrapper.running.TryLock() {
			s.logger.Debug("skipping job execution, already running", "name", jobName)
			return
		}
		defer wrapper.running.Unlock()
	case DelayIfRunning:
		wrapper.running.Lock()
		defer wrapper.running.Unlock()
	}

	if s.hooks.OnJobStart != nil {
		s.hooks.OnJobStart(jobName)
	}

	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("panic: %v", r)
			s.logger.Error("job panicked", "name", jobName, "panic", r)
			if s.hooks.OnJobError != nil {
				s.hooks.OnJobError(jobName, panicErr)
			}
		}
	}()

	ctx := s.ctx
	var cancel context.CancelFunc
	if wrapper.options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, wrapper.options.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := wrapper.job(ctx)
	duration := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(jobName, duration, err)
	}

	if err != nil {
		s.logger.Error("job failed", "name", jobName, "error", err, "duration", duration)
		if s.hooks.OnJobError != nil {
			s.hooks.OnJobError(jobName, err)
		}
	} else {
		s.logger.Debug("job completed successfully", "name", jobName, "duration", duration)
	}
}
