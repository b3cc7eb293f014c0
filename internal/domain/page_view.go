package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PageViewEvent is the durable, append-only record of a student opening a page.
type PageViewEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID  uuid.UUID `gorm:"type:uuid;column:student_id;not null;index:idx_page_view_doc_student" json:"student_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;column:document_id;not null;index:idx_page_view_doc_student" json:"document_id"`
	PageNumber int       `gorm:"column:page_number;not null" json:"page_number"`
	ViewedAt   time.Time `gorm:"column:viewed_at;not null;index" json:"viewed_at"`
}

func (PageViewEvent) TableName() string { return "page_view_event" }

func (e *PageViewEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ViewedAt.IsZero() {
		e.ViewedAt = time.Now().UTC()
	}
	return nil
}
