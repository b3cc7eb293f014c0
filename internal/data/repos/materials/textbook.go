package materials

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type TextbookRepo interface {
	Create(dbc dbctx.Context, doc *types.TextbookDocument) (*types.TextbookDocument, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TextbookDocument, error)
	ListByClass(dbc dbctx.Context, classID uuid.UUID) ([]*types.TextbookDocument, error)
	// SavePages overwrites parsed_content and completes the document. It only
	// applies to documents still processing or already completed, so a
	// redelivered job is idempotent and a failed document stays failed.
	SavePages(dbc dbctx.Context, id uuid.UUID, pages []types.Page, sourcePageCount int) (bool, error)
	MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type textbookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTextbookRepo(db *gorm.DB, baseLog *logger.Logger) TextbookRepo {
	return &textbookRepo{db: db, log: baseLog.With("repo", "TextbookRepo")}
}

func (r *textbookRepo) Create(dbc dbctx.Context, doc *types.TextbookDocument) (*types.TextbookDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if doc == nil {
		return nil, nil
	}
	if doc.Status == "" {
		doc.Status = types.TextbookStatusProcessing
	}
	doc.ParsedContent = nil
	if err := transaction.WithContext(dbc.Ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *textbookRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TextbookDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.TextbookDocument
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *textbookRepo) ListByClass(dbc dbctx.Context, classID uuid.UUID) ([]*types.TextbookDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TextbookDocument
	if classID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Omit("parsed_content").
		Where("class_id = ?", classID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *textbookRepo) SavePages(dbc dbctx.Context, id uuid.UUID, pages []types.Page, sourcePageCount int) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	raw, err := types.EncodePages(pages)
	if err != nil {
		return false, err
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.TextbookDocument{}).
		Where("id = ? AND status IN ?", id, []string{types.TextbookStatusProcessing, types.TextbookStatusCompleted}).
		Updates(map[string]interface{}{
			"status":            types.TextbookStatusCompleted,
			"parsed_content":    datatypes.JSON(raw),
			"total_pages":       len(pages),
			"source_page_count": sourcePageCount,
			"error":             "",
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed flips a processing document to failed. Completed documents are
// left alone so a late failure from a duplicate delivery cannot regress them.
func (r *textbookRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.TextbookDocument{}).
		Where("id = ? AND status = ?", id, types.TextbookStatusProcessing).
		Updates(map[string]interface{}{
			"status":         types.TextbookStatusFailed,
			"parsed_content": datatypes.JSON([]byte("[]")),
			"error":          reason,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *textbookRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.TextbookDocument{}).Error
}
