// Package retry provides asynchronous retry with exponential backoff and
// jitter, scheduled through a timer queue.
//
// Key Features:
//   - Attempts run as timer-queue entries: no goroutine sleeps between
//     tries, and backoff delays share the queue's dispatch precision
//   - Multiple jitter strategies (None, Equal, Decorrelated)
//   - Configurable attempt and elapsed-time limits
//   - Observability hooks (OnRetry callback)
//   - Custom delay policies (NextDelay override)
//   - Result delivery through a *future.Future
//
// Basic Usage:
//
//	fut, err := retry.Do(ctx, queue, retry.DefaultConfig(), func(ctx context.Context) (any, error) {
//	    return fetchRemote(ctx)
//	})
//	if err != nil {
//	    return err
//	}
//	v, err := fut.Get()
//
// Advanced Configuration:
//
//	cfg := retry.Config{
//	    MaxAttempts:    5,
//	    InitialDelay:   200 * time.Millisecond,
//	    MaxDelay:       10 * time.Second,
//	    MaxElapsedTime: 60 * time.Second,
//	    JitterStrategy: retry.JitterDecorrelated,
//	    OnRetry: func(attempt int, err error, delay time.Duration) {
//	        logger.Warn("retrying", "attempt", attempt, "delay", delay, "error", err)
//	    },
//	}
//
// When attempts are exhausted the future resolves with a
// *RetriesExceededError wrapping the last error.
package retry
