package services

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/textbook-backend/internal/data/dberr"
	"github.com/yungbote/textbook-backend/internal/data/repos/learning"
	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/storage"
)

type UploadInput struct {
	ClassID     uuid.UUID
	Filename    string
	StoragePath string
	UploadedBy  uuid.UUID
	Size        int64
	Grade       string
	Subject     string
}

type TextbookService interface {
	// Register records an upload the gateway already stored and queues it for
	// processing. It returns as soon as both rows are committed.
	Register(ctx context.Context, in UploadInput) (*types.TextbookDocument, *types.JobRun, error)
	Get(ctx context.Context, id uuid.UUID) (*types.TextbookDocument, error)
	ListByClass(ctx context.Context, classID uuid.UUID) ([]*types.TextbookDocument, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Page(ctx context.Context, id uuid.UUID, pageNumber int) (*types.Page, error)
	Insights(ctx context.Context, id uuid.UUID, pageNumber int) (string, error)
}

type textbookService struct {
	tx         dbctx.TxRunner
	log        *logger.Logger
	textbooks  materials.TextbookRepo
	activities learning.ActivityRepo
	jobs       JobService
	pages      PageCache
	storage    storage.Storage
}

func NewTextbookService(
	db *gorm.DB,
	baseLog *logger.Logger,
	textbooks materials.TextbookRepo,
	activities learning.ActivityRepo,
	jobs JobService,
	pages PageCache,
	store storage.Storage,
) TextbookService {
	return &textbookService{
		tx:         dbctx.NewTxRunner(db),
		log:        baseLog.With("service", "TextbookService"),
		textbooks:  textbooks,
		activities: activities,
		jobs:       jobs,
		pages:      pages,
		storage:    store,
	}
}

func (s *textbookService) Register(ctx context.Context, in UploadInput) (*types.TextbookDocument, *types.JobRun, error) {
	const op = "TextbookService.Register"
	in.Filename = strings.TrimSpace(in.Filename)
	in.StoragePath = strings.TrimSpace(in.StoragePath)
	switch {
	case in.ClassID == uuid.Nil:
		return nil, nil, apperr.Validation(op, "class id required")
	case in.UploadedBy == uuid.Nil:
		return nil, nil, apperr.Validation(op, "uploader id required")
	case in.Filename == "":
		return nil, nil, apperr.Validation(op, "filename required")
	case in.StoragePath == "":
		return nil, nil, apperr.Validation(op, "storage path required")
	case !strings.EqualFold(path.Ext(in.Filename), ".pdf"):
		return nil, nil, apperr.Validation(op, "only pdf uploads are supported, got %q", in.Filename)
	case in.Size < 0:
		return nil, nil, apperr.Validation(op, "size must be >= 0")
	}

	var (
		doc *types.TextbookDocument
		job *types.JobRun
	)
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		created, err := s.textbooks.Create(dbc, &types.TextbookDocument{
			ClassID:     in.ClassID,
			Filename:    in.Filename,
			StoragePath: in.StoragePath,
			UploadedBy:  in.UploadedBy,
			Size:        in.Size,
		})
		if err != nil {
			return err
		}
		queued, err := s.jobs.EnqueueTextbookProcess(dbc, created.ID, created.StoragePath, ProcessOptions{
			Grade:   strings.TrimSpace(in.Grade),
			Subject: strings.TrimSpace(in.Subject),
		})
		if err != nil {
			return err
		}
		doc, job = created, queued
		return nil
	})
	if err != nil {
		err = dberr.Classify(op, err)
		s.log.Error("register textbook failed", "class_id", in.ClassID, "error", err)
		return nil, nil, err
	}
	s.log.Info("textbook registered", "document_id", doc.ID, "job_id", job.ID)
	return doc, job, nil
}

func (s *textbookService) Get(ctx context.Context, id uuid.UUID) (*types.TextbookDocument, error) {
	doc, err := s.textbooks.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("TextbookService.Get", "textbook")
	}
	return doc, nil
}

func (s *textbookService) ListByClass(ctx context.Context, classID uuid.UUID) ([]*types.TextbookDocument, error) {
	if classID == uuid.Nil {
		return nil, apperr.Validation("TextbookService.ListByClass", "class id required")
	}
	return s.textbooks.ListByClass(dbctx.Context{Ctx: ctx}, classID)
}

// Delete removes the upload, the row and its activities, then drops every
// cache key the document owns. A missing upload is not an error.
func (s *textbookService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, storage.ErrNotExist) {
		return err
	}
	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := s.activities.SoftDeleteByTextbook(dbc, id); err != nil {
			return err
		}
		return s.textbooks.SoftDelete(dbc, id)
	})
	if err != nil {
		return err
	}
	s.pages.Invalidate(ctx, id)
	s.log.Info("textbook deleted", "document_id", id)
	return nil
}

func (s *textbookService) Page(ctx context.Context, id uuid.UUID, pageNumber int) (*types.Page, error) {
	return s.pages.Get(ctx, id, pageNumber)
}

func (s *textbookService) Insights(ctx context.Context, id uuid.UUID, pageNumber int) (string, error) {
	if text, ok := s.pages.GetInsight(ctx, id, pageNumber); ok {
		return text, nil
	}
	return "", apperr.NotFound("TextbookService.Insights", "insight")
}
