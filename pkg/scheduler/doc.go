// Package scheduler provides recurring job execution on top of a timer
// queue: cron-spec and fixed-interval jobs are compiled into one-shot
// timers, and every fire re-arms the next occurrence.
//
// Features:
//   - Cron-style schedules parsed with github.com/robfig/cron/v3
//     (six fields, seconds first, plus @every/@hourly descriptors)
//   - Fixed-interval jobs with sub-second resolution
//   - Job overlap control policies (Allow/Skip/Delay)
//   - Per-job timeouts and named jobs
//   - Job ID management with add/remove capabilities
//   - Parent context support for lifecycle management
//   - Graceful shutdown with optional deadline (StopContext)
//   - Idempotent Start/Stop operations
//   - Error handling and panic recovery
//   - Structured logging with slog integration
//   - Optional hooks for observability
//
// Because occurrences are ordinary timer-queue entries, recurring jobs
// share the executor, dispatch ordering and future semantics of one-shot
// timers.
//
// Basic usage:
//
//	sched := scheduler.New(queue, scheduler.Config{Logger: logger})
//
//	cronID, err := sched.AddCronJob("0 */5 * * * *", func(ctx context.Context) error {
//		return cleanup(ctx)
//	})
//
//	intervalID, err := sched.AddIntervalJobWithOptions(250*time.Millisecond, poll, scheduler.JobOptions{
//		Name:          "poll-upstream",
//		Timeout:       5 * time.Second,
//		OverlapPolicy: scheduler.SkipIfRunning,
//	})
//
//	sched.Start()
//	defer sched.Stop()
//
//	sched.Remove(cronID)
//	sched.Remove(intervalID)
//
// Overlap policies:
//   - AllowOverlap: occurrences can run concurrently (default)
//   - SkipIfRunning: skip the occurrence if the previous run is still active
//   - DelayIfRunning: wait for the previous run to finish before starting
//
// Overlap only arises when the backing executor runs more than one worker;
// with a single worker occurrences serialize naturally.
package scheduler
