package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/textbook-backend/internal/data/dberr"
	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/ctxutil"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

const EntityTextbook = "textbook"

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	EnqueueTextbookProcess(dbc dbctx.Context, documentID uuid.UUID, filePath string, opts ProcessOptions) (*types.JobRun, error)
	EnqueueActivityGenerate(dbc dbctx.Context, documentID, teacherID uuid.UUID, opts GenerateOptions) (*types.JobRun, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error)
}

type jobService struct {
	log  *logger.Logger
	repo jobs.JobRunRepo
}

func NewJobService(baseLog *logger.Logger, repo jobs.JobRunRepo) JobService {
	return &jobService{
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if _, ok := payload["trace_id"]; !ok && td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if _, ok := payload["request_id"]; !ok && td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     types.JobStatusQueued,
		Stage:      types.JobStatusQueued,
		Message:    "Queued",
		Payload:    datatypes.JSON(b),
		Result:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, dberr.Classify("JobService.Enqueue", err)
	}
	s.log.Debug("job enqueued", "job_id", job.ID, "job_type", jobType, "entity_type", entityType)
	return job, nil
}

func (s *jobService) EnqueueTextbookProcess(dbc dbctx.Context, documentID uuid.UUID, filePath string, opts ProcessOptions) (*types.JobRun, error) {
	if documentID == uuid.Nil {
		return nil, fmt.Errorf("missing document_id")
	}
	id := documentID
	return s.Enqueue(dbc, types.JobTypeTextbookProcess, EntityTextbook, &id, map[string]any{
		"document_id": documentID.String(),
		"file_path":   filePath,
		"grade":       opts.Grade,
		"subject":     opts.Subject,
	})
}

func (s *jobService) EnqueueActivityGenerate(dbc dbctx.Context, documentID, teacherID uuid.UUID, opts GenerateOptions) (*types.JobRun, error) {
	if documentID == uuid.Nil {
		return nil, fmt.Errorf("missing document_id")
	}
	id := documentID
	return s.Enqueue(dbc, types.JobTypeActivityGenerate, EntityTextbook, &id, map[string]any{
		"document_id": documentID.String(),
		"teacher_id":  teacherID.String(),
		"grade":       opts.Grade,
		"subject":     opts.Subject,
		"length":      opts.Length,
	})
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	return s.repo.GetByID(dbc, jobID)
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
	return s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
}
