package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"timerkit/pkg/future"
)

var (
	// ErrAlreadyStarted is returned by Start when the pool is running.
	ErrAlreadyStarted = errors.New("pool: already started")
	// ErrStopped is returned by Execute when the pool is not running.
	ErrStopped = errors.New("pool: not running")
	// ErrNilJob is returned by Execute for a nil job.
	ErrNilJob = errors.New("pool: nil job")
)

type lifecycle int

const (
	lifecycleIdle lifecycle = iota
	lifecycleRunning
	lifecycleStopped
)

type queueEntry struct {
	job     future.Job
	resolve future.ResolveFunc
}

// ThreadPool executes jobs on a fixed set of worker goroutines, each job
// wrapped in a future. The queue between Execute and the workers is an
// unbounded FIFO.
type ThreadPool struct {
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []queueEntry
	state   lifecycle
	workers int

	wg sync.WaitGroup
}

// Option configures a ThreadPool.
type Option func(*ThreadPool)

// WithLogger sets the pool's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *ThreadPool) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a stopped pool. Call Start to spawn workers.
func New(opts ...Option) *ThreadPool {
	p := &ThreadPool{logger: slog.Default()}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start spawns numWorkers workers. Starting an already-running pool returns
// ErrAlreadyStarted; restarting after Stop is allowed.
func (p *ThreadPool) Start(numWorkers int) error {
	if numWorkers <= 0 {
		return fmt.Errorf("pool: numWorkers must be positive, got %d", numWorkers)
	}

	p.mu.Lock()
	if p.state == lifecycleRunning {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.state = lifecycleRunning
	p.workers = numWorkers
	p.mu.Unlock()

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.workerLoop(i)
	}
	p.logger.Info("pool started", "workers", numWorkers)
	return nil
}

// Stop signals shutdown and joins the workers. Running jobs finish; queued
// jobs are discarded and their futures stay pending. Stopping a pool that
// is not running is a no-op.
func (p *ThreadPool) Stop() {
	p.mu.Lock()
	if p.state != lifecycleRunning {
		p.mu.Unlock()
		return
	}
	p.state = lifecycleStopped
	discarded := len(p.queue)
	p.queue = nil
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
	p.logger.Info("pool stopped", "discarded_jobs", discarded)
}

// Execute enqueues job and returns a future that becomes ready when the job
// completes or fails. The returned future carries the pool as its source
// executor, so Inherit continuations land back on the pool.
func (p *ThreadPool) Execute(job future.Job) (*future.Future, error) {
	if job == nil {
		return nil, ErrNilJob
	}

	fut, resolve := future.NewPromise()
	fut.AttachExecutor(p)

	p.mu.Lock()
	if p.state != lifecycleRunning {
		p.mu.Unlock()
		return nil, ErrStopped
	}
	p.queue = append(p.queue, queueEntry{job: job, resolve: resolve})
	p.mu.Unlock()

	p.cond.Signal()
	return fut, nil
}

// Pending returns the number of jobs queued but not yet picked up.
func (p *ThreadPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Workers returns the configured worker count, or 0 when the pool is not
// running.
func (p *ThreadPool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != lifecycleRunning {
		return 0
	}
	return p.workers
}

func (p *ThreadPool) workerLoop(id int) {
	defer p.wg.Done()
	log := p.logger.With("worker", id)
	log.Debug("worker started")

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && p.state == lifecycleRunning {
			p.cond.Wait()
		}
		if p.state != lifecycleRunning {
			p.mu.Unlock()
			log.Debug("worker stopped")
			return
		}
		entry := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		runJob(entry)
	}
}

// runJob executes one job and fulfills its future with the value, the
// returned error, or the recovered panic.
func runJob(entry queueEntry) {
	defer func() {
		if r := recover(); r != nil {
			entry.resolve(nil, &future.PanicError{Value: r})
		}
	}()
	entry.resolve(entry.job())
}
