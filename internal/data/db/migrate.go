package db

import (
	"fmt"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Textbooks + durable reading log
		&types.TextbookDocument{},
		&types.PageViewEvent{},

		// Generated activities + graded responses
		&types.Activity{},
		&types.ActivityResponse{},

		// Job queue
		&types.JobRun{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
