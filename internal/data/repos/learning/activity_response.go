package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type ActivityResponseRepo interface {
	// CreateUnique inserts the response unless (activity_id, student_id)
	// already exists. It reports false, without error, on a duplicate.
	CreateUnique(dbc dbctx.Context, row *types.ActivityResponse) (bool, error)
	Get(dbc dbctx.Context, activityID, studentID uuid.UUID) (*types.ActivityResponse, error)
	ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.ActivityResponse, error)
}

type activityResponseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityResponseRepo(db *gorm.DB, baseLog *logger.Logger) ActivityResponseRepo {
	return &activityResponseRepo{db: db, log: baseLog.With("repo", "ActivityResponseRepo")}
}

func (r *activityResponseRepo) CreateUnique(dbc dbctx.Context, row *types.ActivityResponse) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "activity_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *activityResponseRepo) Get(dbc dbctx.Context, activityID, studentID uuid.UUID) (*types.ActivityResponse, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if activityID == uuid.Nil || studentID == uuid.Nil {
		return nil, nil
	}
	var out []*types.ActivityResponse
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ? AND student_id = ?", activityID, studentID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *activityResponseRepo) ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]*types.ActivityResponse, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActivityResponse
	if activityID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ?", activityID).
		Order("submitted_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
