package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"timerkit/pkg/future"
	"timerkit/pkg/timerq"
)

// JitterStrategy defines the jitter strategy to use
type JitterStrategy int

const (
	// JitterNone disables jitter
	JitterNone JitterStrategy = iota
	// JitterEqual applies uniform jitter (equal chance of any delay in range)
	JitterEqual
	// JitterDecorrelated applies decorrelated jitter (AWS recommended)
	JitterDecorrelated
)

// Op is an operation that can be retried.
type Op func(ctx context.Context) (any, error)

// IsRetryableFunc determines if an error should trigger a retry
type IsRetryableFunc func(err error) bool

// Config defines retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first one)
	MaxAttempts int
	// InitialDelay is the initial delay between retries
	InitialDelay time.Duration
	// MinDelay is the minimum delay between retries (defaults to InitialDelay)
	MinDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
	// MaxElapsedTime is the maximum total time to spend on retries (0 = no limit)
	MaxElapsedTime time.Duration
	// Multiplier is the exponential backoff multiplier
	Multiplier float64
	// JitterStrategy defines the jitter algorithm to use
	JitterStrategy JitterStrategy
	// Rand is the random source for jitter (optional, uses local source if nil)
	Rand *rand.Rand
	// IsRetryable decides whether an error is worth another attempt
	// (defaults to DefaultRetryable)
	IsRetryable IsRetryableFunc
	// OnRetry is called before each rescheduled attempt for observability
	OnRetry func(attempt int, err error, nextDelay time.Duration)
	// NextDelay allows custom delay calculation (overrides backoff+jitter if provided)
	NextDelay func(attempt int, err error) (time.Duration, bool)
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterStrategy: JitterDecorrelated,
	}
}

// Normalize validates and normalizes the configuration
func (c *Config) Normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.InitialDelay <= 0 {
		return errors.New("retry: InitialDelay must be positive")
	}
	if c.MinDelay <= 0 {
		c.MinDelay = c.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.MinDelay > c.MaxDelay {
		return errors.New("retry: MinDelay cannot be greater than MaxDelay")
	}
	if c.InitialDelay < c.MinDelay || c.InitialDelay > c.MaxDelay {
		return errors.New("retry: InitialDelay must be between MinDelay and MaxDelay")
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	if c.MaxElapsedTime < 0 {
		return errors.New("retry: MaxElapsedTime cannot be negative")
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.IsRetryable == nil {
		c.IsRetryable = DefaultRetryable
	}
	return nil
}

// RetriesExceededError is returned when retries are exhausted
type RetriesExceededError struct {
	LastError     error
	Attempts      int
	TotalDuration time.Duration
	Reason        string
}

func (e *RetriesExceededError) Error() string {
	return "retry: " + e.Reason + " after " + e.TotalDuration.String() + " (" +
		fmt.Sprintf("%d", e.Attempts) + " attempts): " + e.LastError.Error()
}

func (e *RetriesExceededError) Unwrap() error {
	return e.LastError
}

// DefaultRetryable retries every error except context cancellation.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// attemptState carries one retry chain. Attempts are strictly sequential
// (the next one is enqueued only after the previous finished), so no
// locking is needed.
type attemptState struct {
	ctx     context.Context
	queue   *timerq.TimerQueue
	cfg     Config
	op      Op
	resolve future.ResolveFunc

	attempt   int
	started   time.Time
	prevDelay time.Duration
}

// Do runs op through the timer queue, retrying failed attempts after a
// backoff delay. The first attempt is enqueued immediately. The returned
// future resolves with op's first successful result, with ctx's error if
// the context is cancelled between attempts, or with a
// *RetriesExceededError once attempts or MaxElapsedTime are exhausted.
// Enqueueing the first attempt can fail synchronously (stopped queue).
func Do(ctx context.Context, queue *timerq.TimerQueue, cfg Config, op Op) (*future.Future, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if op == nil {
		return nil, errors.New("retry: nil op")
	}

	fut, resolve := future.NewPromise()
	st := &attemptState{
		ctx:     ctx,
		queue:   queue,
		cfg:     cfg,
		op:      op,
		resolve: resolve,
		started: time.Now(),
	}
	if _, err := queue.Enqueue(time.Now(), st.run); err != nil {
		return nil, err
	}
	return fut, nil
}

// run executes one attempt on the queue's executor and either resolves the
// chain's future or enqueues the next attempt.
func (st *attemptState) run() (any, error) {
	if err := st.ctx.Err(); err != nil {
		st.resolve(nil, err)
		return nil, err
	}

	st.attempt++
	v, err := st.op(st.ctx)
	if err == nil {
		st.resolve(v, nil)
		return v, nil
	}

	if !st.cfg.IsRetryable(err) {
		st.resolve(nil, err)
		return nil, err
	}

	delay, retry := st.nextDelay(err)
	if !retry {
		exceeded := &RetriesExceededError{
			LastError:     err,
			Attempts:      st.attempt,
			TotalDuration: time.Since(st.started),
			Reason:        "retries exhausted",
		}
		st.resolve(nil, exceeded)
		return nil, exceeded
	}
	if st.cfg.MaxElapsedTime > 0 && time.Since(st.started)+delay > st.cfg.MaxElapsedTime {
		exceeded := &RetriesExceededError{
			LastError:     err,
			Attempts:      st.attempt,
			TotalDuration: time.Since(st.started),
			Reason:        "elapsed time limit reached",
		}
		st.resolve(nil, exceeded)
		return nil, exceeded
	}

	if st.cfg.OnRetry != nil {
		st.cfg.OnRetry(st.attempt, err, delay)
	}
	if _, enqErr := st.queue.Enqueue(time.Now().Add(delay), st.run); enqErr != nil {
		st.resolve(nil, fmt.Errorf("retry: reschedule attempt %d: %w", st.attempt+1, enqErr))
		return nil, enqErr
	}
	return nil, err
}

// nextDelay computes the delay before the next attempt, or retry=false when
// the attempt budget is spent.
func (st *attemptState) nextDelay(err error) (time.Duration, bool) {
	if st.attempt >= st.cfg.MaxAttempts {
		return 0, false
	}
	if st.cfg.NextDelay != nil {
		return st.cfg.NextDelay(st.attempt, err)
	}

	base := st.cfg.InitialDelay
	for i := 1; i < st.attempt; i++ {
		base = time.Duration(float64(base) * st.cfg.Multiplier)
		if base > st.cfg.MaxDelay {
			base = st.cfg.MaxDelay
			break
		}
	}
	if base < st.cfg.MinDelay {
		base = st.cfg.MinDelay
	}

	var delay time.Duration
	switch st.cfg.JitterStrategy {
	case JitterEqual:
		half := base / 2
		delay = half + time.Duration(st.cfg.Rand.Int63n(int64(half)+1))
	case JitterDecorrelated:
		prev := st.prevDelay
		if prev <= 0 {
			prev = st.cfg.InitialDelay
		}
		span := int64(3*prev) - int64(st.cfg.MinDelay)
		if span <= 0 {
			span = 1
		}
		delay = st.cfg.MinDelay + time.Duration(st.cfg.Rand.Int63n(span))
	default:
		delay = base
	}
	if delay > st.cfg.MaxDelay {
		delay = st.cfg.MaxDelay
	}
	if delay < st.cfg.MinDelay {
		delay = st.cfg.MinDelay
	}
	st.prevDelay = delay
	return delay, true
}
