package pool

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerkit/pkg/future"
)

func newTestPool(t *testing.T, workers int) *ThreadPool {
	t.Helper()

	p := New(WithLogger(slog.Default()))
	require.NoError(t, p.Start(workers))
	t.Cleanup(p.Stop)
	return p
}

func TestThreadPool_ExecuteReturnsValue(t *testing.T) {
	p := newTestPool(t, 1)

	fut, err := p.Execute(func() (any, error) {
		return 2 + 1, nil
	})
	require.NoError(t, err)

	v, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestThreadPool_JobErrorStoredInFuture(t *testing.T) {
	p := newTestPool(t, 1)
	boom := errors.New("job blew up")

	fut, err := p.Execute(func() (any, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = fut.Get()
	assert.ErrorIs(t, err, boom)
}

func TestThreadPool_JobPanicDoesNotKillWorker(t *testing.T) {
	p := newTestPool(t, 1)

	fut, err := p.Execute(func() (any, error) {
		panic("worker, survive this")
	})
	require.NoError(t, err)

	_, err = fut.Get()
	var panicErr *future.PanicError
	require.ErrorAs(t, err, &panicErr)

	// The worker is still alive and serving jobs.
	fut, err = p.Execute(func() (any, error) { return "alive", nil })
	require.NoError(t, err)
	v, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, "alive", v)
}

func TestThreadPool_SingleWorkerPreservesFIFO(t *testing.T) {
	p := newTestPool(t, 1)

	var mu sync.Mutex
	var order []int
	var futs []*future.Future
	for i := 0; i < 10; i++ {
		i := i
		fut, err := p.Execute(func() (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		})
		require.NoError(t, err)
		futs = append(futs, fut)
	}
	for _, fut := range futs {
		fut.Wait()
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestThreadPool_MultipleWorkersRunConcurrently(t *testing.T) {
	p := newTestPool(t, 4)

	var running atomic.Int64
	var peak atomic.Int64
	barrier := make(chan struct{})

	var futs []*future.Future
	for i := 0; i < 4; i++ {
		fut, err := p.Execute(func() (any, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-barrier
			running.Add(-1)
			return nil, nil
		})
		require.NoError(t, err)
		futs = append(futs, fut)
	}

	require.Eventually(t, func() bool {
		return running.Load() == 4
	}, 2*time.Second, 5*time.Millisecond, "all four workers should pick up a job")
	close(barrier)
	for _, fut := range futs {
		fut.Wait()
	}
	assert.EqualValues(t, 4, peak.Load())
}

func TestThreadPool_DoubleStart(t *testing.T) {
	p := New()
	require.NoError(t, p.Start(1))
	defer p.Stop()

	assert.ErrorIs(t, p.Start(1), ErrAlreadyStarted)
}

func TestThreadPool_InvalidWorkerCount(t *testing.T) {
	p := New()
	assert.Error(t, p.Start(0))
	assert.Error(t, p.Start(-3))
}

func TestThreadPool_ExecuteAfterStop(t *testing.T) {
	p := New()
	require.NoError(t, p.Start(1))
	p.Stop()

	_, err := p.Execute(func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestThreadPool_ExecuteBeforeStart(t *testing.T) {
	p := New()
	_, err := p.Execute(func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestThreadPool_NilJob(t *testing.T) {
	p := newTestPool(t, 1)
	_, err := p.Execute(nil)
	assert.ErrorIs(t, err, ErrNilJob)
}

func TestThreadPool_StopLetsRunningJobFinish(t *testing.T) {
	p := New()
	require.NoError(t, p.Start(1))

	started := make(chan struct{})
	var finished atomic.Bool
	fut, err := p.Execute(func() (any, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil, nil
	})
	require.NoError(t, err)

	<-started
	p.Stop()

	assert.True(t, finished.Load(), "Stop must wait for the running job")
	assert.True(t, fut.IsReady())
}

func TestThreadPool_RestartAfterStop(t *testing.T) {
	p := New()
	require.NoError(t, p.Start(1))
	p.Stop()

	require.NoError(t, p.Start(2))
	defer p.Stop()

	fut, err := p.Execute(func() (any, error) { return "second life", nil })
	require.NoError(t, err)
	v, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, "second life", v)
	assert.Equal(t, 2, p.Workers())
}

func TestThreadPool_InheritContinuationRunsOnPool(t *testing.T) {
	p := newTestPool(t, 1)

	fut, err := p.Execute(func() (any, error) { return 1, nil })
	require.NoError(t, err)

	chained := fut.Then(func(f *future.Future) (any, error) {
		v, err := f.Get()
		if err != nil {
			return nil, err
		}
		return v.(int) + 1, nil
	}, future.Inherit)

	v, err := chained.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
