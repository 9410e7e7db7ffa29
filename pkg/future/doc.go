// Package future provides a shared result cell for asynchronous jobs with
// blocking wait, readiness polling and chainable continuations.
//
// Key Features:
//   - One-way pending→ready transition, delivered exactly once
//   - Value or error results; recovered panics become *PanicError
//   - Blocking Wait/Get with context-aware variants
//   - Continuations with configurable launch policies (Async, Deferred,
//     Sync, Inherit, Any, None)
//   - Executor attachment for the Inherit policy
//
// Basic Usage:
//
//	fut, resolve := future.NewPromise()
//	go func() {
//		resolve(compute(), nil)
//	}()
//	v, err := fut.Get()
//
// Continuations:
//
//	chained := fut.Then(func(f *future.Future) (any, error) {
//		v, err := f.Get()
//		if err != nil {
//			return nil, err
//		}
//		return v.(int) + 1, nil
//	}, future.Async)
//
// Launch policies:
//   - Async: runs on a fresh goroutine; never on the caller's goroutine
//     synchronously, even when the source is already ready.
//   - Deferred: runs lazily on the goroutine that first calls Wait/Get on
//     the returned future.
//   - Sync: runs inline on the goroutine that fulfills the source, before
//     blocked waiters are released. Keep sync continuations short.
//   - Inherit: runs on the source future's executor when one is attached;
//     behaves as Async otherwise.
//   - Any / None: implementation's choice - Sync when the source is already
//     ready at registration time, Async otherwise.
//
// A continuation's error (or panic) fulfills the chained future with that
// error; the source future is never affected.
package future
