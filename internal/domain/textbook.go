package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TextbookStatusProcessing = "processing"
	TextbookStatusCompleted  = "completed"
	TextbookStatusFailed     = "failed"
)

// TextbookDocument is one uploaded PDF and its parse state.
// ParsedContent stays NULL until the document reaches a terminal status.
type TextbookDocument struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClassID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"class_id"`
	Filename        string         `gorm:"column:filename;not null" json:"filename"`
	StoragePath     string         `gorm:"column:storage_path;not null" json:"storage_path"`
	UploadedBy      uuid.UUID      `gorm:"type:uuid;column:uploaded_by;not null;index" json:"uploaded_by"`
	Size            int64          `gorm:"column:size;not null;default:0" json:"size"`
	Status          string         `gorm:"column:status;not null;index" json:"status"`
	TotalPages      int            `gorm:"column:total_pages;not null;default:0" json:"total_pages"`
	SourcePageCount int            `gorm:"column:source_page_count;not null;default:0" json:"source_page_count"`
	ParsedContent   datatypes.JSON `gorm:"column:parsed_content;type:jsonb" json:"parsed_content,omitempty"`
	Error           string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TextbookDocument) TableName() string { return "textbook_document" }

func (d *TextbookDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Pages decodes ParsedContent. A document without parsed content has no pages.
func (d *TextbookDocument) Pages() ([]Page, error) {
	if d == nil || len(d.ParsedContent) == 0 || string(d.ParsedContent) == "null" {
		return nil, nil
	}
	var pages []Page
	if err := json.Unmarshal(d.ParsedContent, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (d *TextbookDocument) IsTerminal() bool {
	return d.Status == TextbookStatusCompleted || d.Status == TextbookStatusFailed
}

// Page is one logical unit of parsed text. PageNumber is 1-based and contiguous.
type Page struct {
	PageNumber int            `json:"pageNumber"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EncodePages serializes pages for the parsed_content column.
func EncodePages(pages []Page) (datatypes.JSON, error) {
	if pages == nil {
		pages = []Page{}
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
