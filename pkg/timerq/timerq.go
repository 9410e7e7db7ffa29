package timerq

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"timerkit/pkg/future"
)

var (
	// ErrAlreadyStarted is returned by Start when the queue is running.
	ErrAlreadyStarted = errors.New("timerq: already started")
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("timerq: stopped")
	// ErrNilJob is returned by Enqueue for a nil job.
	ErrNilJob = errors.New("timerq: nil job")
)

// Job is the unit of work a timer fires.
type Job = future.Job

// Executor is the capability the queue consumes from its execution backend:
// run a job asynchronously and report completion through a future. Any
// conforming implementation may back a queue; *pool.ThreadPool is the usual
// choice.
type Executor = future.Executor

// UID identifies a timer within one queue. UIDs are minted monotonically at
// enqueue time and never reused.
type UID uint64

// TimerHandle is returned by Enqueue. It shares the timer's future with the
// queue but does not own the queue entry.
type TimerHandle struct {
	// UID cancels the timer or checks whether it is still queued.
	UID UID
	// Deadline is the scheduled execution timepoint, kept for convenience.
	Deadline time.Time
	// Result becomes ready when the job has run (or failed) on the
	// executor. It stays pending forever if the timer is cancelled,
	// cleared, or discarded by Stop.
	Result *future.Future
}

type mapEntry struct {
	job     Job
	resolve future.ResolveFunc
}

type lifecycle int

const (
	lifecycleIdle lifecycle = iota
	lifecycleRunning
	lifecycleStopped
)

// TimerQueue dispatches jobs to an executor at their deadlines. One
// dedicated dispatcher goroutine sleeps until the earliest deadline, pops
// due entries and hands them off with no lock held.
type TimerQueue struct {
	exec   Executor
	logger *slog.Logger

	mu      sync.Mutex
	state   lifecycle
	nextUID UID
	jobs    map[UID]mapEntry
	heap    timerHeap

	notify chan struct{}
	stopc  chan struct{}
	wg     sync.WaitGroup
}

// Option configures a TimerQueue.
type Option func(*TimerQueue)

// WithLogger sets the queue's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *TimerQueue) {
		if l != nil {
			q.logger = l
		}
	}
}

// New creates a stopped queue backed by exec. Ownership of exec is not
// taken; the caller starts and stops it. Panics if exec is nil.
func New(exec Executor, opts ...Option) *TimerQueue {
	if exec == nil {
		panic("timerq: nil executor")
	}
	q := &TimerQueue{
		exec:   exec,
		logger: slog.Default(),
		jobs:   make(map[UID]mapEntry),
		notify: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// StartOption configures the dispatcher thread at Start time.
type StartOption func(*startConfig)

type startConfig struct {
	sched *SchedParams
}

// SchedParams is an OS scheduling request for the dispatcher thread.
type SchedParams struct {
	Policy   SchedPolicy
	Priority int
}

// WithSchedPolicy asks for an OS scheduling policy on the dispatcher
// thread. For SchedFIFO and SchedRR the priority range on Linux is 1..99;
// SchedOther takes priority 0. Applying the policy requires privilege
// (CAP_SYS_NICE); failure is logged and the dispatcher continues with
// default scheduling.
func WithSchedPolicy(policy SchedPolicy, priority int) StartOption {
	return func(c *startConfig) {
		c.sched = &SchedParams{Policy: policy, Priority: priority}
	}
}

// Start spawns the dispatcher. Starting a running queue returns
// ErrAlreadyStarted; restarting after Stop is allowed (entries do not
// survive a Stop).
func (q *TimerQueue) Start(opts ...StartOption) error {
	var cfg startConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	q.mu.Lock()
	if q.state == lifecycleRunning {
		q.mu.Unlock()
		return ErrAlreadyStarted
	}
	q.state = lifecycleRunning
	q.stopc = make(chan struct{})
	stopc := q.stopc
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run(stopc, cfg.sched)
	q.logger.Info("timer queue started")
	return nil
}

// Stop signals the dispatcher to exit and joins it. Undispatched entries
// are discarded; their futures stay pending. Entries already handed to the
// executor run to completion. Stopping a queue that is not running is a
// no-op.
func (q *TimerQueue) Stop() {
	q.mu.Lock()
	if q.state != lifecycleRunning {
		q.mu.Unlock()
		return
	}
	q.state = lifecycleStopped
	discarded := len(q.jobs)
	q.jobs = make(map[UID]mapEntry)
	q.heap = nil
	stopc := q.stopc
	q.mu.Unlock()

	close(stopc)
	q.wg.Wait()
	q.logger.Info("timer queue stopped", "discarded_timers", discarded)
}

// Enqueue registers job to run at deadline and returns its handle. A
// deadline in the past is legal: the dispatcher finds the entry due
// immediately. Deadlines with a monotonic clock reading (anything derived
// from time.Now) are immune to wall-clock steps; purely wall-clock
// deadlines may fire early or late if the system clock jumps.
func (q *TimerQueue) Enqueue(deadline time.Time, job Job) (TimerHandle, error) {
	if job == nil {
		return TimerHandle{}, ErrNilJob
	}

	fut, resolve := future.NewPromise()
	fut.AttachExecutor(q.exec)

	q.mu.Lock()
	if q.state == lifecycleStopped {
		q.mu.Unlock()
		return TimerHandle{}, ErrStopped
	}
	uid := q.nextUID
	q.nextUID++
	q.jobs[uid] = mapEntry{job: job, resolve: resolve}
	heap.Push(&q.heap, heapEntry{uid: uid, deadline: deadline})
	isFirst := q.heap[0].uid == uid
	q.mu.Unlock()

	if isFirst {
		q.wake()
	}
	q.logger.Debug("timer enqueued", "uid", uint64(uid), "deadline", deadline)
	return TimerHandle{UID: uid, Deadline: deadline, Result: fut}, nil
}

// Cancel marks the timer cancelled. It returns true iff an entry with that
// uid was present and not yet dispatched; once the dispatcher has handed
// the job to the executor the timer can no longer be revoked and Cancel
// returns false. Cancel never blocks on the dispatcher. The heap slot is
// reclaimed lazily (see Purge).
func (q *TimerQueue) Cancel(uid UID) bool {
	q.mu.Lock()
	_, ok := q.jobs[uid]
	var wasFirst bool
	if ok {
		delete(q.jobs, uid)
		wasFirst = len(q.heap) > 0 && q.heap[0].uid == uid
	}
	q.mu.Unlock()

	if ok {
		if wasFirst {
			q.wake()
		}
		q.logger.Debug("timer cancelled", "uid", uint64(uid))
	}
	return ok
}

// InQueue reports whether an uncancelled, undispatched entry with uid
// exists.
func (q *TimerQueue) InQueue(uid UID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.jobs[uid]
	return ok
}

// Len returns the number of uncancelled, undispatched timers.
func (q *TimerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Purge compacts the heap by removing entries whose timers were cancelled.
// An optimization for long-lived queues with many cancellations; the
// dispatcher never waits on a cancelled timer either way.
func (q *TimerQueue) Purge() {
	q.mu.Lock()
	if len(q.heap) > len(q.jobs) {
		compact := make(timerHeap, 0, len(q.jobs))
		for _, e := range q.heap {
			if _, ok := q.jobs[e.uid]; ok {
				compact = append(compact, e)
			}
		}
		heap.Init(&compact)
		purged := len(q.heap) - len(compact)
		q.heap = compact
		q.mu.Unlock()
		q.logger.Debug("purged cancelled timers", "count", purged)
		return
	}
	q.mu.Unlock()
}

// Clear drops every entry, cancelled or not. Futures of dropped timers stay
// pending; subsequent Cancel calls for prior uids return false.
func (q *TimerQueue) Clear() {
	q.mu.Lock()
	dropped := len(q.jobs)
	q.jobs = make(map[UID]mapEntry)
	q.heap = nil
	q.mu.Unlock()

	if dropped > 0 {
		q.wake()
	}
	q.logger.Debug("cleared timers", "count", dropped)
}

// wake nudges the dispatcher to re-evaluate the heap head. Non-blocking;
// the channel holds at most one pending wake-up.
func (q *TimerQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// run is the dispatcher loop. With a scheduling request the goroutine is
// pinned to its OS thread so the policy applies to the dispatcher alone;
// the thread is discarded when the goroutine exits.
func (q *TimerQueue) run(stopc chan struct{}, sched *SchedParams) {
	defer q.wg.Done()

	if sched != nil {
		runtime.LockOSThread()
		if err := applySchedParams(sched); err != nil {
			q.logger.Warn("failed to set dispatcher sched params",
				"policy", sched.Policy, "priority", sched.Priority, "error", err)
		} else {
			q.logger.Info("dispatcher sched params set",
				"policy", sched.Policy, "priority", sched.Priority)
		}
	}

	q.logger.Debug("dispatcher started")
	for {
		q.mu.Lock()
		// Discard cancelled heads before deciding how long to sleep.
		for len(q.heap) > 0 {
			if _, ok := q.jobs[q.heap[0].uid]; ok {
				break
			}
			heap.Pop(&q.heap)
		}

		if len(q.heap) == 0 {
			q.mu.Unlock()
			select {
			case <-q.notify:
				continue
			case <-stopc:
				q.logger.Debug("dispatcher stopped")
				return
			}
		}

		head := q.heap[0]
		if wait := time.Until(head.deadline); wait > 0 {
			q.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-q.notify:
				timer.Stop()
			case <-stopc:
				timer.Stop()
				q.logger.Debug("dispatcher stopped")
				return
			}
			continue
		}

		heap.Pop(&q.heap)
		entry, ok := q.jobs[head.uid]
		if ok {
			delete(q.jobs, head.uid)
		}
		q.mu.Unlock()
		if ok {
			q.dispatch(head.uid, entry)
		}
	}
}

// dispatch hands one due entry to the executor and chains the executor's
// future into the handle's future with a sync continuation, so the handle
// observes the job's actual completion. No queue lock is held here:
// Enqueue and Cancel may be called freely from the job or its
// continuations.
func (q *TimerQueue) dispatch(uid UID, entry mapEntry) {
	execFut, err := q.exec.Execute(entry.job)
	if err != nil {
		q.logger.Warn("executor rejected timer job", "uid", uint64(uid), "error", err)
		entry.resolve(nil, fmt.Errorf("timerq: executor rejected job: %w", err))
		return
	}
	q.logger.Debug("timer dispatched", "uid", uint64(uid))
	execFut.Then(func(f *future.Future) (any, error) {
		v, e := f.Get()
		entry.resolve(v, e)
		return v, e
	}, future.Sync)
}
