package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/dberr"
	"github.com/yungbote/textbook-backend/internal/data/repos/learning"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type ActivityInput struct {
	ClassID     uuid.UUID
	TextbookID  uuid.UUID
	PageNumber  int
	Title       string
	Description string
	Type        types.ActivityType
	Questions   []types.Question
	CreatedBy   uuid.UUID
}

type ActivityService interface {
	Create(ctx context.Context, in ActivityInput) (*types.Activity, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Activity, error)
	ListByTextbook(ctx context.Context, textbookID uuid.UUID) ([]*types.Activity, error)
	UpdateQuestions(ctx context.Context, id uuid.UUID, questions []types.Question) (*types.Activity, error)
	Submit(ctx context.Context, activityID, studentID uuid.UUID, answers types.Answers) (*types.ActivityResponse, error)
	GetResponse(ctx context.Context, activityID, studentID uuid.UUID) (*types.ActivityResponse, error)
	// Generate runs generation inline when async is false, otherwise queues an
	// activity_generate job and returns it.
	Generate(ctx context.Context, textbookID, teacherID uuid.UUID, opts GenerateOptions, async bool) ([]*types.Activity, *types.JobRun, error)
}

type activityService struct {
	log        *logger.Logger
	activities learning.ActivityRepo
	generator  ActivityGenerator
	scoring    ScoringEngine
	jobs       JobService
}

func NewActivityService(
	baseLog *logger.Logger,
	activities learning.ActivityRepo,
	generator ActivityGenerator,
	scoring ScoringEngine,
	jobs JobService,
) ActivityService {
	return &activityService{
		log:        baseLog.With("service", "ActivityService"),
		activities: activities,
		generator:  generator,
		scoring:    scoring,
		jobs:       jobs,
	}
}

func (s *activityService) Create(ctx context.Context, in ActivityInput) (*types.Activity, error) {
	const op = "ActivityService.Create"
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.ClassID == uuid.Nil || in.TextbookID == uuid.Nil || in.CreatedBy == uuid.Nil:
		return nil, apperr.Validation(op, "class, textbook and creator ids required")
	case in.Title == "":
		return nil, apperr.Validation(op, "title required")
	case len(in.Questions) == 0:
		return nil, apperr.Validation(op, "at least one question required")
	}
	if in.Type == "" {
		in.Type = types.ActivityType(in.Questions[0].Type)
	}
	if err := validateQuestions(op, in.Questions); err != nil {
		return nil, err
	}
	raw, err := types.EncodeQuestions(in.Questions)
	if err != nil {
		return nil, err
	}
	created, err := s.activities.Create(dbctx.Context{Ctx: ctx}, []*types.Activity{{
		ID:          uuid.New(),
		ClassID:     in.ClassID,
		TextbookID:  in.TextbookID,
		PageNumber:  in.PageNumber,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Questions:   raw,
		CreatedBy:   in.CreatedBy,
		Modifiable:  true,
	}})
	if err != nil {
		return nil, dberr.Classify(op, err)
	}
	return created[0], nil
}

func (s *activityService) Get(ctx context.Context, id uuid.UUID) (*types.Activity, error) {
	act, err := s.activities.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if act == nil {
		return nil, apperr.NotFound("ActivityService.Get", "activity")
	}
	return act, nil
}

func (s *activityService) ListByTextbook(ctx context.Context, textbookID uuid.UUID) ([]*types.Activity, error) {
	if textbookID == uuid.Nil {
		return nil, apperr.Validation("ActivityService.ListByTextbook", "textbook id required")
	}
	return s.activities.ListByTextbook(dbctx.Context{Ctx: ctx}, textbookID)
}

func (s *activityService) UpdateQuestions(ctx context.Context, id uuid.UUID, questions []types.Question) (*types.Activity, error) {
	const op = "ActivityService.UpdateQuestions"
	if len(questions) == 0 {
		return nil, apperr.Validation(op, "at least one question required")
	}
	if err := validateQuestions(op, questions); err != nil {
		return nil, err
	}
	act, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !act.Modifiable {
		return nil, apperr.New(apperr.KindValidation, op, apperr.ErrNotModifiable)
	}
	updated, err := s.activities.UpdateQuestions(dbctx.Context{Ctx: ctx}, id, questions)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperr.New(apperr.KindValidation, op, apperr.ErrNotModifiable)
	}
	return s.Get(ctx, id)
}

func (s *activityService) Submit(ctx context.Context, activityID, studentID uuid.UUID, answers types.Answers) (*types.ActivityResponse, error) {
	return s.scoring.Submit(ctx, activityID, studentID, answers)
}

func (s *activityService) GetResponse(ctx context.Context, activityID, studentID uuid.UUID) (*types.ActivityResponse, error) {
	return s.scoring.GetResponse(ctx, activityID, studentID)
}

func (s *activityService) Generate(ctx context.Context, textbookID, teacherID uuid.UUID, opts GenerateOptions, async bool) ([]*types.Activity, *types.JobRun, error) {
	const op = "ActivityService.Generate"
	if textbookID == uuid.Nil || teacherID == uuid.Nil {
		return nil, nil, apperr.Validation(op, "textbook and teacher ids required")
	}
	if async {
		job, err := s.jobs.EnqueueActivityGenerate(dbctx.Context{Ctx: ctx}, textbookID, teacherID, opts)
		if err != nil {
			return nil, nil, err
		}
		return nil, job, nil
	}
	acts, err := s.generator.GenerateForDocument(ctx, textbookID, teacherID, opts)
	if err != nil {
		return nil, nil, err
	}
	return acts, nil, nil
}

func validateQuestions(op string, qs []types.Question) error {
	for i, q := range qs {
		if strings.TrimSpace(q.Prompt) == "" {
			return apperr.Validation(op, "question %d has no prompt", i)
		}
		if _, err := q.Body(); err != nil {
			return apperr.Validation(op, "question %d: %v", i, err)
		}
	}
	return nil
}
