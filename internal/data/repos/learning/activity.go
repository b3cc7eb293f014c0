package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type ActivityRepo interface {
	Create(dbc dbctx.Context, rows []*types.Activity) ([]*types.Activity, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Activity, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error)
	ListByTextbook(dbc dbctx.Context, textbookID uuid.UUID) ([]*types.Activity, error)
	ListByTextbookPage(dbc dbctx.Context, textbookID uuid.UUID, pageNumber int) ([]*types.Activity, error)
	// UpdateQuestions replaces the question set only while the row is modifiable.
	UpdateQuestions(dbc dbctx.Context, id uuid.UUID, questions []types.Question) (bool, error)
	SoftDeleteByTextbook(dbc dbctx.Context, textbookID uuid.UUID) error
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) Create(dbc dbctx.Context, rows []*types.Activity) ([]*types.Activity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Activity{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *activityRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Activity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Activity
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *activityRepo) ListByTextbook(dbc dbctx.Context, textbookID uuid.UUID) ([]*types.Activity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Activity
	if textbookID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("textbook_id = ?", textbookID).
		Order("page_number ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) ListByTextbookPage(dbc dbctx.Context, textbookID uuid.UUID, pageNumber int) ([]*types.Activity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Activity
	if textbookID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("textbook_id = ? AND page_number = ?", textbookID, pageNumber).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) UpdateQuestions(dbc dbctx.Context, id uuid.UUID, questions []types.Question) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	raw, err := types.EncodeQuestions(questions)
	if err != nil {
		return false, err
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Activity{}).
		Where("id = ? AND modifiable = ?", id, true).
		Updates(map[string]interface{}{
			"questions":  raw,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *activityRepo) SoftDeleteByTextbook(dbc dbctx.Context, textbookID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if textbookID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("textbook_id = ?", textbookID).
		Delete(&types.Activity{}).Error
}
