package materials

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

// PageViewRepo is the append-only reading history. Rows are never updated.
type PageViewRepo interface {
	Append(dbc dbctx.Context, ev *types.PageViewEvent) error
	ListByStudent(dbc dbctx.Context, documentID, studentID uuid.UUID) ([]*types.PageViewEvent, error)
	// ListByDocument returns views at or after since, newest first.
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID, since time.Time) ([]*types.PageViewEvent, error)
}

type pageViewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageViewRepo(db *gorm.DB, baseLog *logger.Logger) PageViewRepo {
	return &pageViewRepo{db: db, log: baseLog.With("repo", "PageViewRepo")}
}

func (r *pageViewRepo) Append(dbc dbctx.Context, ev *types.PageViewEvent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ev == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(ev).Error
}

func (r *pageViewRepo) ListByStudent(dbc dbctx.Context, documentID, studentID uuid.UUID) ([]*types.PageViewEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PageViewEvent
	if documentID == uuid.Nil || studentID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("document_id = ? AND student_id = ?", documentID, studentID).
		Order("viewed_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pageViewRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID, since time.Time) ([]*types.PageViewEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PageViewEvent
	if documentID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).Where("document_id = ?", documentID)
	if !since.IsZero() {
		q = q.Where("viewed_at >= ?", since)
	}
	if err := q.Order("viewed_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
