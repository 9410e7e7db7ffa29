package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"timerkit/internal/config"
	"timerkit/internal/platform/logger"
	"timerkit/internal/shared"
	"timerkit/pkg/pool"
	"timerkit/pkg/scheduler"
	"timerkit/pkg/timerq"
)

// App wires the daemon components: worker pool, timer queue, recurring
// scheduler and the HTTP surface.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "timerkitd",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the application and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	a.log.Info("starting")
	defer func() { _ = logger.Close(a.log) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers := pool.New(pool.WithLogger(a.log.With("component", "pool")))
	if err := workers.Start(a.cfg.Pool.Workers); err != nil {
		return err
	}
	defer workers.Stop()

	queue := timerq.New(workers, timerq.WithLogger(a.log.With("component", "timerq")))
	startOpts, err := a.timerStartOptions()
	if err != nil {
		return err
	}
	if err := queue.Start(startOpts...); err != nil {
		return err
	}
	defer queue.Stop()

	// Housekeeping: compact the heap of long-cancelled timers.
	sched := scheduler.NewWithContext(ctx, queue, scheduler.Config{
		Logger: a.log.With("component", "scheduler"),
	})
	if _, err := sched.AddIntervalJobWithOptions(time.Minute, func(context.Context) error {
		queue.Purge()
		return nil
	}, scheduler.JobOptions{Name: "purge-cancelled", OverlapPolicy: scheduler.SkipIfRunning}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if a.cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	a.registerRoutes(router, queue, workers)

	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: router}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.StopContext(shutdownCtx); err != nil {
		a.log.Warn("scheduler shutdown exceeded deadline", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func (a *App) timerStartOptions() ([]timerq.StartOption, error) {
	policy, err := timerq.ParseSchedPolicy(a.cfg.Timer.SchedPolicy)
	if err != nil {
		return nil, err
	}
	if policy == timerq.SchedOther {
		return nil, nil
	}
	return []timerq.StartOption{
		timerq.WithSchedPolicy(policy, a.cfg.Timer.SchedPriority),
	}, nil
}

type enqueueRequest struct {
	DelayMS  *int64     `json:"delay_ms" binding:"required_without=Deadline,omitempty,min=0"`
	Deadline *time.Time `json:"deadline" binding:"required_without=DelayMS"`
	Message  string     `json:"message"`
}

func (a *App) registerRoutes(router *gin.Engine, queue *timerq.TimerQueue, workers *pool.ThreadPool) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/v1/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"timers_queued": queue.Len(),
			"jobs_pending":  workers.Pending(),
			"pool_workers":  workers.Workers(),
		})
	})

	router.POST("/v1/timers", func(c *gin.Context) {
		var req enqueueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		deadline := time.Now()
		if req.Deadline != nil {
			deadline = *req.Deadline
		} else if req.DelayMS != nil {
			deadline = deadline.Add(time.Duration(*req.DelayMS) * time.Millisecond)
		}

		msg := req.Message
		handle, err := queue.Enqueue(deadline, func() (any, error) {
			a.log.Info("timer fired", "message", msg)
			return msg, nil
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"uid":      uint64(handle.UID),
			"deadline": handle.Deadline,
		})
	})

	router.GET("/v1/timers/:uid", func(c *gin.Context) {
		uid, err := parseUID(c.Param("uid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": uint64(uid), "in_queue": queue.InQueue(uid)})
	})

	router.DELETE("/v1/timers/:uid", func(c *gin.Context) {
		uid, err := parseUID(c.Param("uid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !queue.Cancel(uid) {
			c.JSON(http.StatusNotFound, gin.H{"error": "timer not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	router.POST("/v1/timers/purge", func(c *gin.Context) {
		queue.Purge()
		c.Status(http.StatusNoContent)
	})
}

// statusFor maps the library error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch shared.KindOf(err) {
	case shared.KindContract:
		return http.StatusBadRequest
	case shared.KindLifecycle:
		return http.StatusConflict
	case shared.KindTimeout, shared.KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseUID(s string) (timerq.UID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, shared.Wrap(err, "invalid uid")
	}
	return timerq.UID(n), nil
}
