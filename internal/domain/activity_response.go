package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityResponse is one student's graded submission. The unique index on
// (activity_id, student_id) is what keeps concurrent submissions to one row.
type ActivityResponse struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID  uuid.UUID      `gorm:"type:uuid;column:activity_id;not null;uniqueIndex:idx_activity_response_unique" json:"activity_id"`
	StudentID   uuid.UUID      `gorm:"type:uuid;column:student_id;not null;uniqueIndex:idx_activity_response_unique;index" json:"student_id"`
	Answers     datatypes.JSON `gorm:"column:answers;type:jsonb" json:"answers"`
	Score       int            `gorm:"column:score;not null;default:0" json:"score"`
	SubmittedAt time.Time      `gorm:"column:submitted_at;not null" json:"submitted_at"`
}

func (ActivityResponse) TableName() string { return "activity_response" }

func (r *ActivityResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	return nil
}

// Answers are keyed by the question's position, as a decimal string.
type Answers map[string]any

func (r *ActivityResponse) DecodeAnswers() (Answers, error) {
	if r == nil || len(r.Answers) == 0 {
		return Answers{}, nil
	}
	out := Answers{}
	if err := json.Unmarshal(r.Answers, &out); err != nil {
		return nil, err
	}
	return out, nil
}
