package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNilContinuation is returned (inside the chained future) when Then is
// called with a nil function.
var ErrNilContinuation = errors.New("future: nil continuation")

// Job is a unit of work producing an opaque value or an error.
type Job func() (any, error)

// Func is a continuation callable. It receives the source future (or, for
// continuations fired during fulfillment, a ready copy carrying the same
// result), which is guaranteed to be ready at invocation time.
type Func func(f *Future) (any, error)

// Executor is the minimal capability a future needs to launch an Inherit
// continuation: run a job asynchronously and report its completion.
type Executor interface {
	Execute(job Job) (*Future, error)
}

// ResolveFunc fulfills a future created with NewPromise. The first call
// wins; subsequent calls are ignored.
type ResolveFunc func(value any, err error)

// PanicError wraps a panic recovered from a job or continuation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

const (
	statePending int32 = iota
	stateValue
	stateError
)

type continuation struct {
	fn     Func
	policy Policy
	child  *Future
}

// deferredLink arms a future returned by Then with the Deferred policy: the
// continuation runs on the goroutine that first waits on it.
type deferredLink struct {
	src  *Future
	fn   Func
	once sync.Once
}

// Future is a shared cell carrying the eventual result of a job. The zero
// value is not usable; create futures with NewPromise, NewReady or
// NewFailed.
type Future struct {
	state atomic.Int32

	mu    sync.Mutex
	value any
	err   error
	conts []continuation
	exec  Executor

	done chan struct{}
	def  *deferredLink
}

// NewPromise creates a pending future together with its resolve function.
// Resolving with a non-nil error marks the future error-ready; otherwise it
// becomes value-ready. The transition is one-way and happens at most once.
func NewPromise() (*Future, ResolveFunc) {
	f := &Future{done: make(chan struct{})}
	return f, f.fulfill
}

// NewReady returns a future that is already fulfilled with value.
func NewReady(value any) *Future {
	f, resolve := NewPromise()
	resolve(value, nil)
	return f
}

// NewFailed returns a future that is already fulfilled with err.
func NewFailed(err error) *Future {
	f, resolve := NewPromise()
	resolve(nil, err)
	return f
}

// AttachExecutor records the executor that produced this future. It is used
// as the launch target for continuations registered with Inherit. Executor
// implementations call this on futures they mint; it has no effect after
// the future is ready.
func (f *Future) AttachExecutor(e Executor) {
	f.mu.Lock()
	if f.state.Load() == statePending {
		f.exec = e
	}
	f.mu.Unlock()
}

// IsReady reports whether the future has left the pending state. It never
// blocks.
func (f *Future) IsReady() bool {
	return f.state.Load() != statePending
}

// Wait blocks until the future is ready. Safe to call from multiple
// goroutines. Waiting on a future from the goroutine that is responsible
// for fulfilling it deadlocks; that contract violation is not detected.
func (f *Future) Wait() {
	if f.def != nil {
		f.def.src.Wait()
		f.runDeferred()
	}
	<-f.done
}

// WaitContext blocks until the future is ready or ctx is done, returning
// ctx.Err() in the latter case. A Deferred continuation is not launched if
// ctx expires before its source is ready.
func (f *Future) WaitContext(ctx context.Context) error {
	if f.def != nil {
		if err := f.def.src.WaitContext(ctx); err != nil {
			return err
		}
		f.runDeferred()
	}
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get waits for readiness and returns the stored value or error. It is
// idempotent: repeated calls return the same result. The value is shared,
// not moved, so other observers may call Get as well.
func (f *Future) Get() (any, error) {
	f.Wait()
	return f.result()
}

// GetContext is Get bounded by ctx.
func (f *Future) GetContext(ctx context.Context) (any, error) {
	if err := f.WaitContext(ctx); err != nil {
		return nil, err
	}
	return f.result()
}

func (f *Future) result() (any, error) {
	if f.state.Load() == stateError {
		return nil, f.err
	}
	return f.value, nil
}

// Then registers fn as a continuation of f and returns a future carrying
// fn's eventual result. If f is already ready the policy applies
// immediately: Sync runs fn inline before Then returns, Async and Inherit
// launch it without blocking, Any and None behave as Sync. If f is still
// pending the pair is queued and fired during the pending→ready transition,
// in registration order. fn's error or panic fulfills the returned future;
// f itself is never modified.
func (f *Future) Then(fn Func, policy Policy) *Future {
	if fn == nil {
		return NewFailed(ErrNilContinuation)
	}
	if policy == Deferred {
		child := &Future{done: make(chan struct{})}
		child.def = &deferredLink{src: f, fn: fn}
		return child
	}

	child := &Future{done: make(chan struct{})}
	f.mu.Lock()
	if f.state.Load() == statePending {
		// Any resolves at dispatch time to Async: the source was pending
		// at registration.
		if policy == Any {
			policy = Async
		}
		f.conts = append(f.conts, continuation{fn: fn, policy: policy, child: child})
		f.mu.Unlock()
		return child
	}
	f.mu.Unlock()

	if policy == Any {
		policy = Sync
	}
	f.dispatch(continuation{fn: fn, policy: policy, child: child})
	return child
}

// fulfill performs the pending→ready transition: store the result, flip the
// state, fire continuations in registration order (Sync ones inline, on
// this goroutine) and only then release blocked waiters.
func (f *Future) fulfill(value any, err error) {
	f.mu.Lock()
	if f.state.Load() != statePending {
		f.mu.Unlock()
		return
	}
	f.value, f.err = value, err
	if err != nil {
		f.state.Store(stateError)
	} else {
		f.state.Store(stateValue)
	}
	conts := f.conts
	f.conts = nil
	exec := f.exec
	f.mu.Unlock()

	if len(conts) == 0 {
		close(f.done)
		return
	}
	// f.done stays open until the continuations are dispatched, so they are
	// handed a ready copy of f: Get on it returns at once, even from a Sync
	// continuation running on this goroutine.
	view := &Future{done: make(chan struct{}), value: value, err: err, exec: exec}
	view.state.Store(f.state.Load())
	close(view.done)
	for _, c := range conts {
		view.dispatch(c)
	}
	close(f.done)
}

// dispatch launches one continuation according to its policy. f is ready.
func (f *Future) dispatch(c continuation) {
	switch c.policy {
	case Sync:
		c.child.fulfill(safeCall(c.fn, f))
	case Inherit:
		f.mu.Lock()
		exec := f.exec
		f.mu.Unlock()
		if exec != nil {
			_, err := exec.Execute(func() (any, error) {
				v, e := safeCall(c.fn, f)
				c.child.fulfill(v, e)
				return v, e
			})
			if err == nil {
				return
			}
			// Executor rejected the job (stopped); fall back to Async.
		}
		fallthrough
	default: // Async
		go func() {
			c.child.fulfill(safeCall(c.fn, f))
		}()
	}
}

func (f *Future) runDeferred() {
	d := f.def
	d.once.Do(func() {
		f.fulfill(safeCall(d.fn, d.src))
	})
}

// safeCall invokes fn, converting a panic into a *PanicError so that it
// never escapes into the invoking goroutine's control flow.
func safeCall(fn Func, src *Future) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &PanicError{Value: r}
		}
	}()
	return fn(src)
}
