package worker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/jobs/runtime"
	"github.com/yungbote/textbook-backend/internal/observability"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	// StaleRunning is how long a running job may go without a heartbeat
	// before another worker reclaims it.
	StaleRunning time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 10 * time.Minute
	}
	return c
}

type Worker struct {
	log      *logger.Logger
	repo     jobs.JobRunRepo
	registry *runtime.Registry
	cfg      Config
}

func NewWorker(baseLog *logger.Logger, repo jobs.JobRunRepo, registry *runtime.Registry, cfg Config) *Worker {
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		cfg:      cfg.withDefaults(),
	}
}

// Run blocks until ctx is canceled. A job that is mid-flight when that
// happens runs to completion first.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting job worker pool",
		"concurrency", w.cfg.Concurrency,
		"job_types", w.registry.Types(),
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.runLoop(gctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain: keep claiming until the queue is empty.
			for ctx.Err() == nil && w.RunOnce(ctx, workerID) {
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job was claimed.
func (w *Worker) RunOnce(ctx context.Context, workerID int) bool {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
		return false
	}
	if job == nil {
		return false
	}
	w.execute(context.WithoutCancel(ctx), workerID, job)
	return true
}

func (w *Worker) execute(ctx context.Context, workerID int, job *types.JobRun) {
	ctx, span := otel.Tracer("textbook-backend/jobs").Start(ctx, "job."+job.JobType)
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.type", job.JobType),
		attribute.Int("job.attempt", job.Attempts),
	)

	jc := runtime.NewContext(ctx, job, w.repo, w.log.With("worker_id", workerID))
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		jc.Log.Warn("No handler registered for job_type")
		err := &missingHandlerError{JobType: job.JobType}
		span.SetStatus(codes.Error, err.Error())
		jc.Fail("dispatch", err)
		return
	}

	stopHeartbeat := w.heartbeat(ctx, job)
	defer stopHeartbeat()

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				jc.Log.Error("Job handler panic", "panic", r)
				jc.Fail("panic", &panicError{Val: r})
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			// Handlers usually call jc.Fail themselves; this is the safety net.
			jc.Fail("run", runErr)
		}
	}()

	if job.Status != types.JobStatusSucceeded {
		span.SetStatus(codes.Error, job.Error)
	}
	observability.Current().ObserveJob(job.JobType, job.Status, time.Since(start))
	jc.Log.Info("Job finished", "status", job.Status, "stage", job.Stage, "duration_ms", time.Since(start).Milliseconds())
}

// heartbeat keeps a long job from looking stale while the handler runs.
func (w *Worker) heartbeat(ctx context.Context, job *types.JobRun) func() {
	interval := w.cfg.StaleRunning / 3
	if interval <= 0 {
		return func() {}
	}
	hctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-hctx.Done():
				return
			case <-t.C:
				if err := w.repo.Heartbeat(dbctx.Context{Ctx: hctx}, job.ID); err != nil {
					w.log.Warn("job heartbeat failed", "job_id", job.ID, "error", err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for job_type=" + e.JobType
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
