package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityFillInBlank    ActivityType = "fill_in_blank"
	ActivityMultipleChoice ActivityType = "multiple_choice"
	ActivityVocabulary     ActivityType = "vocabulary"
	ActivityShortAnswer    ActivityType = "short_answer"
	ActivityEssay          ActivityType = "essay"
)

// Activity is a generated or teacher-authored question set. Questions keep
// their generation order; answers are matched to them by position.
type Activity struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClassID     uuid.UUID      `gorm:"type:uuid;column:class_id;not null;index" json:"class_id"`
	TextbookID  uuid.UUID      `gorm:"type:uuid;column:textbook_id;not null;index:idx_activity_textbook_page" json:"textbook_id"`
	PageNumber  int            `gorm:"column:page_number;not null;default:0;index:idx_activity_textbook_page" json:"page_number"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Type        ActivityType   `gorm:"column:type;not null;index" json:"type"`
	Questions   datatypes.JSON `gorm:"column:questions;type:jsonb" json:"questions"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;column:created_by" json:"created_by"`
	Modifiable  bool           `gorm:"column:modifiable;not null" json:"modifiable"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Activity) TableName() string { return "activity" }

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Activity) DecodeQuestions() ([]Question, error) {
	if a == nil || len(a.Questions) == 0 {
		return nil, nil
	}
	var qs []Question
	if err := json.Unmarshal(a.Questions, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func EncodeQuestions(qs []Question) (datatypes.JSON, error) {
	if qs == nil {
		qs = []Question{}
	}
	b, err := json.Marshal(qs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
