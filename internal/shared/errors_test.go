package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"timerkit/pkg/future"
	"timerkit/pkg/pool"
	"timerkit/pkg/timerq"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", errors.New("whatever"), KindUnknown},
		{"context canceled", context.Canceled, KindCanceled},
		{"context deadline", context.DeadlineExceeded, KindTimeout},
		{"timeout sentinel", ErrTimeout, KindTimeout},
		{"pool stopped", pool.ErrStopped, KindLifecycle},
		{"pool double start", pool.ErrAlreadyStarted, KindLifecycle},
		{"queue stopped", timerq.ErrStopped, KindLifecycle},
		{"queue double start", timerq.ErrAlreadyStarted, KindLifecycle},
		{"pool nil job", pool.ErrNilJob, KindContract},
		{"queue nil job", timerq.ErrNilJob, KindContract},
		{"nil continuation", future.ErrNilContinuation, KindContract},
		{"panic error", &future.PanicError{Value: "boom"}, KindJob},
		{"job sentinel", ErrJob, KindJob},
		{"os sentinel", ErrOS, KindOS},
		{"wrapped lifecycle", fmt.Errorf("enqueue: %w", timerq.ErrStopped), KindLifecycle},
		{"wrapped panic", fmt.Errorf("worker: %w", &future.PanicError{Value: 1}), KindJob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindOf_CanceledBeatsOtherKinds(t *testing.T) {
	err := errors.Join(context.Canceled, pool.ErrStopped)
	assert.Equal(t, KindCanceled, KindOf(err))
}

func TestHasKind(t *testing.T) {
	assert.True(t, HasKind(pool.ErrStopped, KindLifecycle))
	assert.False(t, HasKind(pool.ErrStopped, KindContract))
}

func TestMarkKind(t *testing.T) {
	cause := errors.New("sched_setattr: operation not permitted")
	marked := MarkKind(cause, KindOS)

	assert.Equal(t, KindOS, KindOf(marked))
	assert.ErrorIs(t, marked, cause)

	// Idempotent.
	again := MarkKind(marked, KindOS)
	assert.Equal(t, marked, again)
}

func TestMarkKind_NilError(t *testing.T) {
	assert.ErrorIs(t, MarkKind(nil, KindTimeout), ErrTimeout)
}

func TestMarkKind_UnsupportedKind(t *testing.T) {
	cause := errors.New("whatever")
	assert.Equal(t, cause, MarkKind(cause, KindCanceled))
	assert.Equal(t, cause, MarkKind(cause, KindUnknown))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))

	cause := timerq.ErrNilJob
	wrapped := Wrap(cause, "enqueue request")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, KindContract, KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "enqueue request")
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, Wrapf(nil, "timer %d", 7))

	wrapped := Wrapf(pool.ErrStopped, "timer %d", 7)
	assert.ErrorIs(t, wrapped, pool.ErrStopped)
	assert.Contains(t, wrapped.Error(), "timer 7")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Job", KindJob.String())
	assert.Equal(t, "Lifecycle", KindLifecycle.String())
	assert.Equal(t, "Contract", KindContract.String())
	assert.Equal(t, "OS", KindOS.String())
	assert.Equal(t, "Timeout", KindTimeout.String())
	assert.Equal(t, "Canceled", KindCanceled.String())
	assert.Equal(t, "Unknown", KindUnknown.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
