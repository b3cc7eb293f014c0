package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-backend/internal/domain"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/platform/openai"
)

func newActivityService(h *harness) ActivityService {
	return NewActivityService(h.log, h.activities, h.generator(openai.NewMockClient()), h.scoring(), h.jobs)
}

func TestActivityCreateAndUpdate(t *testing.T) {
	h := newHarness(t)
	svc := newActivityService(h)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, nil)

	in := ActivityInput{
		ClassID:    doc.ClassID,
		TextbookID: doc.ID,
		PageNumber: 2,
		Title:      " Review ",
		Questions:  []types.Question{fill("a")},
		CreatedBy:  uuid.New(),
	}
	act, err := svc.Create(h.ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if act.Title != "Review" || act.Type != types.ActivityFillInBlank || !act.Modifiable {
		t.Fatalf("unexpected activity %+v", act)
	}

	updated, err := svc.UpdateQuestions(h.ctx, act.ID, []types.Question{fill("a"), fill("b")})
	if err != nil {
		t.Fatalf("UpdateQuestions: %v", err)
	}
	if qs, _ := updated.DecodeQuestions(); len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}

	if err := h.db.Model(&types.Activity{}).Where("id = ?", act.ID).Update("modifiable", false).Error; err != nil {
		t.Fatalf("lock: %v", err)
	}
	_, err = svc.UpdateQuestions(h.ctx, act.ID, []types.Question{fill("z")})
	if !apperr.Is(err, apperr.KindValidation) || !errors.Is(err, apperr.ErrNotModifiable) {
		t.Fatalf("expected not-modifiable validation error, got %v", err)
	}

	list, err := svc.ListByTextbook(h.ctx, doc.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByTextbook: %d %v", len(list), err)
	}
}

func TestActivityCreateValidation(t *testing.T) {
	h := newHarness(t)
	svc := newActivityService(h)
	base := ActivityInput{ClassID: uuid.New(), TextbookID: uuid.New(), Title: "t", CreatedBy: uuid.New()}

	if _, err := svc.Create(h.ctx, base); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("no questions: %v", err)
	}
	base.Questions = []types.Question{{Type: types.QuestionMultipleChoice, Prompt: "p", Options: []string{"a"}}}
	if _, err := svc.Create(h.ctx, base); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unscoreable question: %v", err)
	}
	if _, err := svc.Get(h.ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing activity: %v", err)
	}
}

func TestActivityGenerateSyncAndAsync(t *testing.T) {
	h := newHarness(t)
	svc := newActivityService(h)
	doc := testutil.SeedTextbook(t, h.ctx, h.db, types.TextbookStatusCompleted, []types.Page{{PageNumber: 1, Text: longPage}})
	teacher := uuid.New()

	acts, job, err := svc.Generate(h.ctx, doc.ID, teacher, GenerateOptions{}, false)
	if err != nil || job != nil || len(acts) != 2 {
		t.Fatalf("sync Generate: %d %v %v", len(acts), job, err)
	}

	acts, job, err = svc.Generate(h.ctx, doc.ID, teacher, GenerateOptions{Subject: "science"}, true)
	if err != nil || acts != nil || job == nil || job.JobType != types.JobTypeActivityGenerate {
		t.Fatalf("async Generate: %v %+v %v", acts, job, err)
	}

	resp, err := svc.Submit(h.ctx, mustFirst(t, h, svc, doc.ID).ID, uuid.New(), types.Answers{})
	if err != nil || resp.Score != 0 {
		t.Fatalf("Submit: %+v %v", resp, err)
	}
}

func mustFirst(t *testing.T, h *harness, svc ActivityService, textbookID uuid.UUID) *types.Activity {
	t.Helper()
	list, err := svc.ListByTextbook(h.ctx, textbookID)
	if err != nil || len(list) == 0 {
		t.Fatalf("ListByTextbook: %v", err)
	}
	return list[0]
}
