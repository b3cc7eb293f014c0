package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	"github.com/yungbote/textbook-backend/internal/data/repos/learning"
	"github.com/yungbote/textbook-backend/internal/data/repos/materials"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type Repos struct {
	Textbook         materials.TextbookRepo
	PageView         materials.PageViewRepo
	Activity         learning.ActivityRepo
	ActivityResponse learning.ActivityResponseRepo
	JobRun           jobs.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Textbook:         materials.NewTextbookRepo(db, log),
		PageView:         materials.NewPageViewRepo(db, log),
		Activity:         learning.NewActivityRepo(db, log),
		ActivityResponse: learning.NewActivityResponseRepo(db, log),
		JobRun:           jobs.NewJobRunRepo(db, log),
	}
}
