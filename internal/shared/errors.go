// Package shared contains common error types and utilities for error
// classification across the daemon.
package shared

import (
	"context"
	"errors"
	"fmt"

	"timerkit/pkg/future"
	"timerkit/pkg/pool"
	"timerkit/pkg/timerq"
)

// Sentinel errors marking the error kinds of the taxonomy. Library packages
// carry their own sentinels; these exist for marking errors that originate
// outside the library.
var (
	// ErrJob indicates a user job failed
	ErrJob = errors.New("job failed")

	// ErrLifecycle indicates an operation rejected due to component state
	ErrLifecycle = errors.New("lifecycle violation")

	// ErrContract indicates an API contract violation by the caller
	ErrContract = errors.New("contract violation")

	// ErrOS indicates an operating-system facility failure
	ErrOS = errors.New("os facility failed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// Kind represents a category of error for easier classification and handling.
type Kind int

const (
	// KindUnknown represents an unclassified error
	KindUnknown Kind = iota
	// KindJob represents user job failures
	KindJob
	// KindLifecycle represents state-machine violations
	KindLifecycle
	// KindContract represents caller contract violations
	KindContract
	// KindOS represents OS facility failures
	KindOS
	// KindTimeout represents timeout errors
	KindTimeout
	// KindCanceled represents context cancellation
	KindCanceled
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindJob:
		return "Job"
	case KindLifecycle:
		return "Lifecycle"
	case KindContract:
		return "Contract"
	case KindOS:
		return "OS"
	case KindTimeout:
		return "Timeout"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// kindToSentinel maps error kinds to their corresponding sentinel errors.
var kindToSentinel = map[Kind]error{
	KindJob:       ErrJob,
	KindLifecycle: ErrLifecycle,
	KindContract:  ErrContract,
	KindOS:        ErrOS,
	KindTimeout:   ErrTimeout,
}

// contractSentinels are the library's synchronous contract-violation
// errors.
var contractSentinels = []error{
	pool.ErrNilJob,
	timerq.ErrNilJob,
	future.ErrNilContinuation,
}

// lifecycleSentinels are the library's state-machine errors.
var lifecycleSentinels = []error{
	pool.ErrAlreadyStarted,
	pool.ErrStopped,
	timerq.ErrAlreadyStarted,
	timerq.ErrStopped,
}

// KindOf returns the Kind of the given error. It traverses the error chain
// and checks kinds in a deterministic priority order: canceled, timeout,
// contract, lifecycle, OS, job. Returns KindUnknown for unrecognized
// errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if IsCanceled(err) {
		return KindCanceled
	}
	if IsTimeout(err) {
		return KindTimeout
	}
	for _, s := range contractSentinels {
		if errors.Is(err, s) {
			return KindContract
		}
	}
	if errors.Is(err, ErrContract) {
		return KindContract
	}
	for _, s := range lifecycleSentinels {
		if errors.Is(err, s) {
			return KindLifecycle
		}
	}
	if errors.Is(err, ErrLifecycle) {
		return KindLifecycle
	}
	if errors.Is(err, ErrOS) {
		return KindOS
	}
	var panicErr *future.PanicError
	if errors.As(err, &panicErr) {
		return KindJob
	}
	if errors.Is(err, ErrJob) {
		return KindJob
	}
	return KindUnknown
}

// HasKind reports whether the given error has the specified kind. It is
// equivalent to KindOf(err) == kind but provides a more explicit API.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsCanceled reports whether err stems from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err is a timeout: context deadline, ErrTimeout,
// or anything exposing a true Timeout() method.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// MarkKind wraps err with the sentinel for kind, preserving the original
// error through wrapping: KindOf(MarkKind(err, kind)) == kind and
// errors.Is(MarkKind(err, kind), err) both hold. Marking is idempotent; a
// nil err returns the sentinel itself. KindUnknown and KindCanceled have no
// sentinel and return err unchanged.
func MarkKind(err error, kind Kind) error {
	sentinel, ok := kindToSentinel[kind]
	if !ok {
		return err
	}
	if err == nil {
		return sentinel
	}
	if KindOf(err) == kind {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap adds context to an error while preserving the original for
// errors.Is/As checks. Returns nil when err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
