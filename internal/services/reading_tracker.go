package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
)

// ReadingTracker keeps the live "who is on which page" map in the cache and
// the append-only view history in the database.
type ReadingTracker interface {
	RecordView(ctx context.Context, studentID, documentID uuid.UUID, pageNumber int) error
	Current(ctx context.Context, documentID uuid.UUID) (map[uuid.UUID]int, error)
	History(ctx context.Context, documentID, studentID uuid.UUID) ([]*types.PageViewEvent, error)
}

type readingTracker struct {
	log   *logger.Logger
	store cache.Store
	views materials.PageViewRepo
	now   func() time.Time
}

func NewReadingTracker(baseLog *logger.Logger, store cache.Store, views materials.PageViewRepo) ReadingTracker {
	return &readingTracker{
		log:   baseLog.With("service", "ReadingTracker"),
		store: store,
		views: views,
		now:   time.Now,
	}
}

func (t *readingTracker) RecordView(ctx context.Context, studentID, documentID uuid.UUID, pageNumber int) error {
	const op = "ReadingTracker.RecordView"
	if studentID == uuid.Nil || documentID == uuid.Nil {
		return apperr.Validation(op, "student and document ids required")
	}
	if pageNumber < 1 {
		return apperr.Validation(op, "page number must be >= 1, got %d", pageNumber)
	}

	if err := t.store.HSetExpire(ctx, cache.TrackingKey(documentID), studentID.String(), strconv.Itoa(pageNumber), cache.TrackingTTL); err != nil {
		t.log.Warn("tracking cache write failed", "document_id", documentID, "error", apperr.Cache(op, err))
	}

	ev := &types.PageViewEvent{
		StudentID:  studentID,
		DocumentID: documentID,
		PageNumber: pageNumber,
		ViewedAt:   t.now().UTC(),
	}
	if err := t.views.Append(dbctx.Context{Ctx: ctx}, ev); err != nil {
		return err
	}
	return nil
}

func (t *readingTracker) Current(ctx context.Context, documentID uuid.UUID) (map[uuid.UUID]int, error) {
	const op = "ReadingTracker.Current"
	if documentID == uuid.Nil {
		return nil, apperr.Validation(op, "document id required")
	}
	fields, err := t.store.HGetAll(ctx, cache.TrackingKey(documentID))
	if err == nil {
		return decodeTracking(t.log, fields), nil
	}
	t.log.Warn("tracking cache read failed, using view log", "document_id", documentID, "error", apperr.Cache(op, err))

	events, err := t.views.ListByDocument(dbctx.Context{Ctx: ctx}, documentID, t.now().UTC().Add(-cache.TrackingTTL))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(events))
	// newest first, so the first event seen per student wins
	for _, ev := range events {
		if _, ok := out[ev.StudentID]; !ok {
			out[ev.StudentID] = ev.PageNumber
		}
	}
	return out, nil
}

func (t *readingTracker) History(ctx context.Context, documentID, studentID uuid.UUID) ([]*types.PageViewEvent, error) {
	if documentID == uuid.Nil || studentID == uuid.Nil {
		return nil, apperr.Validation("ReadingTracker.History", "student and document ids required")
	}
	return t.views.ListByStudent(dbctx.Context{Ctx: ctx}, documentID, studentID)
}

func decodeTracking(log *logger.Logger, fields map[string]string) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(fields))
	for k, v := range fields {
		sid, err := uuid.Parse(k)
		if err != nil {
			log.Debug("skipping tracking field", "field", k)
			continue
		}
		page, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		out[sid] = page
	}
	return out
}
