package textbook_process

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	jobrt "github.com/yungbote/textbook-backend/internal/jobs/runtime"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/services"
)

type stubProcessor struct {
	err       error
	gotDoc    uuid.UUID
	gotPath   string
	calls     int
	abandoned uuid.UUID
	gotOpts   services.ProcessOptions
}

func (s *stubProcessor) Process(ctx context.Context, documentID uuid.UUID, filePath string, opts services.ProcessOptions) error {
	s.calls++
	s.gotDoc, s.gotPath, s.gotOpts = documentID, filePath, opts
	return s.err
}

func (s *stubProcessor) Abandon(ctx context.Context, documentID uuid.UUID, cause error) error {
	s.abandoned = documentID
	return apperr.Processing("stub.Abandon", cause)
}

func (s *stubProcessor) Wait() {}

func run(t *testing.T, proc *stubProcessor, payload string) *types.JobRun {
	t.Helper()
	return runAttempt(t, proc, payload, 1, 3)
}

func runAttempt(t *testing.T, proc *stubProcessor, payload string, attempt, maxAttempts int) *types.JobRun {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobs.NewJobRunRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}
	job := &types.JobRun{JobType: types.JobTypeTextbookProcess, Status: types.JobStatusRunning, Attempts: attempt, Payload: datatypes.JSON([]byte(payload))}
	if _, err := repo.Create(dbc, []*types.JobRun{job}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := New(log, proc, maxAttempts).Run(jobrt.NewContext(context.Background(), job, repo, log)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := repo.GetByID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return got
}

func TestRunSucceeds(t *testing.T) {
	docID := uuid.New()
	proc := &stubProcessor{}
	got := run(t, proc, `{"document_id":"`+docID.String()+`","file_path":"uploads/a.pdf","grade":"7","subject":"biology"}`)
	if got.Status != types.JobStatusSucceeded {
		t.Fatalf("status=%s error=%s", got.Status, got.Error)
	}
	if proc.gotDoc != docID || proc.gotPath != "uploads/a.pdf" {
		t.Fatalf("processor got %v %q", proc.gotDoc, proc.gotPath)
	}
	if proc.gotOpts.Grade != "7" || proc.gotOpts.Subject != "biology" {
		t.Fatalf("processor opts %+v", proc.gotOpts)
	}
}

func TestRunFailureClassification(t *testing.T) {
	docPayload := `{"document_id":"` + uuid.NewString() + `","file_path":"p.pdf"}`

	got := run(t, &stubProcessor{err: apperr.Processing("op", errors.New("corrupt"))}, docPayload)
	if got.Status != types.JobStatusDead {
		t.Fatalf("processing failure should be dead, got %s", got.Status)
	}

	got = run(t, &stubProcessor{err: errors.New("db connection reset")}, docPayload)
	if got.Status != types.JobStatusFailed {
		t.Fatalf("transient failure should be retryable, got %s", got.Status)
	}

	proc := &stubProcessor{}
	got = run(t, proc, `{"file_path":"p.pdf"}`)
	if got.Status != types.JobStatusDead || proc.calls != 0 {
		t.Fatalf("missing document_id: status=%s calls=%d", got.Status, proc.calls)
	}
}

func TestRunLastAttemptAbandonsDocument(t *testing.T) {
	docID := uuid.New()
	payload := `{"document_id":"` + docID.String() + `","file_path":"p.pdf"}`

	proc := &stubProcessor{err: errors.New("db connection reset")}
	got := runAttempt(t, proc, payload, 2, 3)
	if got.Status != types.JobStatusFailed || proc.abandoned != uuid.Nil {
		t.Fatalf("early attempt: status=%s abandoned=%v", got.Status, proc.abandoned)
	}

	proc = &stubProcessor{err: errors.New("db connection reset")}
	got = runAttempt(t, proc, payload, 3, 3)
	if got.Status != types.JobStatusDead || proc.abandoned != docID {
		t.Fatalf("last attempt: status=%s abandoned=%v", got.Status, proc.abandoned)
	}

	proc = &stubProcessor{err: apperr.Processing("op", errors.New("corrupt"))}
	got = runAttempt(t, proc, payload, 3, 3)
	if got.Status != types.JobStatusDead || proc.abandoned != uuid.Nil {
		t.Fatalf("processing errors already fail the document: abandoned=%v", proc.abandoned)
	}
}
