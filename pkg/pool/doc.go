// Package pool implements a fixed-size worker pool draining an unbounded
// FIFO job queue.
//
// Key Features:
//   - Execute wraps every job in a *future.Future
//   - FIFO hand-off order; execution order matches hand-off order when the
//     pool runs a single worker
//   - Job errors and panics are captured into the future, never killing a
//     worker
//   - Idempotent-safe lifecycle: double Start and Execute after Stop are
//     reported synchronously
//   - Structured logging with slog integration
//
// Basic Usage:
//
//	p := pool.New(pool.WithLogger(logger))
//	if err := p.Start(4); err != nil {
//		return err
//	}
//	defer p.Stop()
//
//	fut, err := p.Execute(func() (any, error) {
//		return doWork()
//	})
//	if err != nil {
//		return err
//	}
//	v, err := fut.Get()
//
// Stop lets running jobs finish and discards queued ones; futures of
// discarded jobs remain pending forever, so release them or bound waits
// with WaitContext.
package pool
