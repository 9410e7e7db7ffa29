package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerkit/internal/shared"
	"timerkit/pkg/pool"
	"timerkit/pkg/timerq"
)

func newTestRouter(t *testing.T) (*gin.Engine, *timerq.TimerQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	workers := pool.New()
	require.NoError(t, workers.Start(1))
	t.Cleanup(workers.Stop)

	queue := timerq.New(workers)
	require.NoError(t, queue.Start())
	t.Cleanup(queue.Stop)

	a := &App{log: slog.Default()}
	router := gin.New()
	a.registerRoutes(router, queue, workers)
	return router, queue
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_Healthz(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_EnqueueInspectCancel(t *testing.T) {
	router, _ := newTestRouter(t)

	delay := int64(60_000)
	w := doJSON(t, router, http.MethodPost, "/v1/timers", gin.H{"delay_ms": delay, "message": "ping"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		UID uint64 `json:"uid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/timers/%d", created.UID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		InQueue bool `json:"in_queue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.InQueue)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/timers/%d", created.UID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Already cancelled.
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/timers/%d", created.UID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_EnqueueImmediateFires(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/timers", gin.H{"delay_ms": 0, "message": "now"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		UID uint64 `json:"uid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	require.Eventually(t, func() bool {
		w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/timers/%d", created.UID), nil)
		var status struct {
			InQueue bool `json:"in_queue"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &status)
		return !status.InQueue
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRoutes_EnqueueValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	// Neither delay_ms nor deadline.
	w := doJSON(t, router, http.MethodPost, "/v1/timers", gin.H{"message": "empty"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_BadUID(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/timers/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/v1/timers/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_Stats(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/timers", gin.H{"delay_ms": int64(60_000)})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		TimersQueued int `json:"timers_queued"`
		PoolWorkers  int `json:"pool_workers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TimersQueued)
	assert.Equal(t, 1, stats.PoolWorkers)
}

func TestRoutes_Purge(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/timers/purge", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRoutes_EnqueueOnStoppedQueueConflicts(t *testing.T) {
	router, queue := newTestRouter(t)
	queue.Stop()

	w := doJSON(t, router, http.MethodPost, "/v1/timers", gin.H{"delay_ms": int64(10)})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(timerq.ErrNilJob))
	assert.Equal(t, http.StatusConflict, statusFor(timerq.ErrStopped))
	assert.Equal(t, http.StatusConflict, statusFor(pool.ErrAlreadyStarted))
	assert.Equal(t, http.StatusRequestTimeout, statusFor(shared.ErrTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assertError{}))
}

type assertError struct{}

func (assertError) Error() string { return "unclassified" }
