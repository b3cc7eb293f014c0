package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/jobs/runtime"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
)

type funcHandler struct {
	t  string
	fn func(jc *runtime.Context) error
}

func (h funcHandler) Type() string                  { return h.t }
func (h funcHandler) Run(jc *runtime.Context) error { return h.fn(jc) }

func setup(t *testing.T, handlers ...runtime.Handler) (*Worker, jobs.JobRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	repo := jobs.NewJobRunRepo(db, testutil.Logger(t))
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	w := NewWorker(testutil.Logger(t), repo, reg, Config{Concurrency: 1, MaxAttempts: 3, RetryDelay: time.Hour, StaleRunning: time.Hour})
	return w, repo
}

func enqueue(t *testing.T, repo jobs.JobRunRepo, jobType string) *types.JobRun {
	t.Helper()
	job := &types.JobRun{JobType: jobType, Payload: datatypes.JSON([]byte(`{}`))}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*types.JobRun{job}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return job
}

func status(t *testing.T, repo jobs.JobRunRepo, job *types.JobRun) *types.JobRun {
	t.Helper()
	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	return got
}

func TestWorkerSuccess(t *testing.T) {
	w, repo := setup(t, funcHandler{t: "ok", fn: func(jc *runtime.Context) error {
		jc.Succeed("done", map[string]any{"ok": true})
		return nil
	}})
	job := enqueue(t, repo, "ok")
	if !w.RunOnce(context.Background(), 1) {
		t.Fatal("expected a job to be claimed")
	}
	if got := status(t, repo, job); got.Status != types.JobStatusSucceeded || got.Attempts != 1 {
		t.Fatalf("unexpected job %+v", got)
	}
	if w.RunOnce(context.Background(), 1) {
		t.Fatal("queue should be empty")
	}
}

func TestWorkerFailureClassification(t *testing.T) {
	w, repo := setup(t,
		funcHandler{t: "transient", fn: func(jc *runtime.Context) error { return errors.New("timeout talking to storage") }},
		funcHandler{t: "permanent", fn: func(jc *runtime.Context) error {
			return apperr.Processing("pdf.Parse", errors.New("corrupt"))
		}},
	)
	transient := enqueue(t, repo, "transient")
	permanent := enqueue(t, repo, "permanent")

	w.RunOnce(context.Background(), 1)
	w.RunOnce(context.Background(), 1)

	if got := status(t, repo, transient); got.Status != types.JobStatusFailed || got.Error == "" {
		t.Fatalf("transient: %+v", got)
	}
	if got := status(t, repo, permanent); got.Status != types.JobStatusDead {
		t.Fatalf("permanent: %+v", got)
	}
}

func TestWorkerRecoversPanicAndMissingHandler(t *testing.T) {
	w, repo := setup(t, funcHandler{t: "boom", fn: func(jc *runtime.Context) error { panic("kaboom") }})
	boom := enqueue(t, repo, "boom")
	orphan := enqueue(t, repo, "unknown_type")

	w.RunOnce(context.Background(), 1)
	w.RunOnce(context.Background(), 1)

	if got := status(t, repo, boom); got.Status != types.JobStatusFailed || got.Stage != "panic" || got.Error != "panic: kaboom" {
		t.Fatalf("panic job: %+v", got)
	}
	if got := status(t, repo, orphan); got.Status != types.JobStatusFailed || got.Stage != "dispatch" {
		t.Fatalf("orphan job: %+v", got)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	w, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
