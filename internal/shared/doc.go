// Package shared contains the error taxonomy and classification utilities
// used across the daemon, without scheduling logic of its own.
//
// # Error Kinds
//
// Errors fall into a small set of kinds:
//
//   - KindJob: a user job failed or panicked; the error lives in the job's
//     future and surfaces on Get
//   - KindLifecycle: an operation was rejected because of component state
//     (execute after stop, double start)
//   - KindContract: the caller violated an API contract (nil job, nil
//     continuation)
//   - KindOS: an operating-system facility failed (scheduling policy)
//   - KindTimeout: an operation hit a deadline
//   - KindCanceled: a context was cancelled
//
// # Classification
//
// Use KindOf to classify errors into kinds:
//
//	switch shared.KindOf(err) {
//	case shared.KindLifecycle:
//	    // reject with 409
//	case shared.KindContract:
//	    // reject with 400
//	default:
//	    // 500
//	}
//
// Or HasKind for explicit checks:
//
//	if shared.HasKind(err, shared.KindTimeout) {
//	    // handle timeout
//	}
//
// KindOf recognizes the library's sentinel errors (pool.ErrStopped,
// timerq.ErrNilJob, *future.PanicError, ...) as well as context and net
// timeout errors, checking kinds in a deterministic priority order:
// canceled, timeout, contract, lifecycle, OS, job.
//
// # Marking
//
// Third-party errors can be pulled into the taxonomy while preserving the
// original error:
//
//	return shared.MarkKind(err, shared.KindOS)
//
// Both shared.KindOf(marked) == shared.KindOS and errors.Is(marked, err)
// hold afterwards.
package shared
