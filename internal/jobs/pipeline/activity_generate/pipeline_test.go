package activity_generate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	jobrt "github.com/yungbote/textbook-backend/internal/jobs/runtime"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/services"
)

type stubGenerator struct {
	err     error
	gotOpts services.GenerateOptions
	teacher uuid.UUID
}

func (s *stubGenerator) GenerateForPage(ctx context.Context, doc *types.TextbookDocument, page types.Page, teacherID uuid.UUID, opts services.GenerateOptions) ([]*types.Activity, error) {
	return nil, nil
}

func (s *stubGenerator) GenerateForDocument(ctx context.Context, documentID, teacherID uuid.UUID, opts services.GenerateOptions) ([]*types.Activity, error) {
	s.gotOpts, s.teacher = opts, teacherID
	if s.err != nil {
		return nil, s.err
	}
	return []*types.Activity{{ID: uuid.New()}, {ID: uuid.New()}}, nil
}

func (s *stubGenerator) CachedBundle(ctx context.Context, documentID uuid.UUID, pageNumber int) ([]*types.Activity, bool) {
	return nil, false
}

func TestRun(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobs.NewJobRunRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}

	seed := func(payload string) *types.JobRun {
		job := &types.JobRun{JobType: types.JobTypeActivityGenerate, Status: types.JobStatusRunning, Attempts: 1, Payload: datatypes.JSON([]byte(payload))}
		if _, err := repo.Create(dbc, []*types.JobRun{job}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		return job
	}

	teacher := uuid.New()
	gen := &stubGenerator{}
	job := seed(`{"document_id":"` + uuid.NewString() + `","teacher_id":"` + teacher.String() + `","grade":"5","subject":"science"}`)
	if err := New(log, gen).Run(jobrt.NewContext(context.Background(), job, repo, log)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := repo.GetByID(dbc, job.ID)
	if got.Status != types.JobStatusSucceeded {
		t.Fatalf("status=%s", got.Status)
	}
	var result struct {
		ActivityIDs []string `json:"activity_ids"`
	}
	if err := json.Unmarshal(got.Result, &result); err != nil || len(result.ActivityIDs) != 2 {
		t.Fatalf("result=%s err=%v", got.Result, err)
	}
	if gen.teacher != teacher || gen.gotOpts.Grade != "5" || gen.gotOpts.Subject != "science" {
		t.Fatalf("generator got %v %+v", gen.teacher, gen.gotOpts)
	}

	failing := &stubGenerator{err: errors.New("timeout")}
	job = seed(`{"document_id":"` + uuid.NewString() + `"}`)
	_ = New(log, failing).Run(jobrt.NewContext(context.Background(), job, repo, log))
	got, _ = repo.GetByID(dbc, job.ID)
	if got.Status != types.JobStatusFailed {
		t.Fatalf("expected retryable failure, got %s", got.Status)
	}

	job = seed(`{}`)
	_ = New(log, gen).Run(jobrt.NewContext(context.Background(), job, repo, log))
	got, _ = repo.GetByID(dbc, job.ID)
	if got.Status != types.JobStatusDead {
		t.Fatalf("missing document_id should be dead, got %s", got.Status)
	}
}
