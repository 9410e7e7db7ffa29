// Package timerq implements a deadline-ordered timer queue: jobs enqueued
// with an absolute deadline are handed to an executor by a dedicated
// dispatcher goroutine once the deadline passes.
//
// Key Features:
//   - Binary heap keyed by (deadline, uid); equal deadlines dispatch in
//     enqueue order
//   - O(1) cancellation by uid with lazy heap compaction (Purge)
//   - Futures for every timer, chained through the executor's own future
//   - Re-entrant: jobs and sync continuations may call Enqueue and Cancel
//   - Optional OS scheduling policy (SCHED_FIFO/SCHED_RR) for the
//     dispatcher thread on Linux
//   - Structured logging with slog integration
//
// Basic Usage:
//
//	p := pool.New()
//	_ = p.Start(1)
//	q := timerq.New(p)
//	if err := q.Start(); err != nil {
//		return err
//	}
//	defer q.Stop()
//
//	handle, err := q.Enqueue(time.Now().Add(200*time.Millisecond), job)
//	if err != nil {
//		return err
//	}
//	if !q.Cancel(handle.UID) {
//		v, err := handle.Result.Get()
//		...
//	}
//
// Dispatch order is strict (deadline, uid) order; execution order is only
// guaranteed when the executor runs a single worker.
//
// Deadlines produced by time.Now().Add carry Go's monotonic clock reading
// and are immune to system clock steps. Deadlines built from wall-clock
// sources are compared by wall clock, so a clock step may fire them early
// or delay them.
package timerq
