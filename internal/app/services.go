package app

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/jobs/pipeline/activity_generate"
	"github.com/yungbote/textbook-backend/internal/jobs/pipeline/textbook_process"
	jobruntime "github.com/yungbote/textbook-backend/internal/jobs/runtime"
	"github.com/yungbote/textbook-backend/internal/jobs/worker"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/services"
)

type Services struct {
	Jobs      services.JobService
	Pages     services.PageCache
	Tracker   services.ReadingTracker
	Search    services.ContentSearch
	Processor services.DocumentProcessor
	Generator services.ActivityGenerator
	Scoring   services.ScoringEngine
	Textbook  services.TextbookService
	Activity  services.ActivityService

	JobRegistry *jobruntime.Registry
	JobWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	jobSvc := services.NewJobService(log, repos.JobRun)
	pages := services.NewPageCache(log, clients.Cache, repos.Textbook)
	tracker := services.NewReadingTracker(log, clients.Cache, repos.PageView)
	search := services.NewContentSearch(log, repos.Textbook)
	processor := services.NewDocumentProcessor(
		log,
		clients.Storage,
		nil,
		repos.Textbook,
		pages,
		clients.OpenAI,
		cfg.Worker.InsightConcurrency,
	)
	generator := services.NewActivityGenerator(log, clients.OpenAI, repos.Textbook, repos.Activity, clients.Cache)
	scoring := services.NewScoringEngine(log, repos.Activity, repos.ActivityResponse, clients.Cache)
	textbookSvc := services.NewTextbookService(
		db,
		log,
		repos.Textbook,
		repos.Activity,
		jobSvc,
		pages,
		clients.Storage,
	)
	activitySvc := services.NewActivityService(log, repos.Activity, generator, scoring, jobSvc)

	registry := jobruntime.NewRegistry()
	if err := registry.Register(textbook_process.New(log, processor, cfg.Worker.MaxAttempts)); err != nil {
		return Services{}, fmt.Errorf("register %s pipeline: %w", types.JobTypeTextbookProcess, err)
	}
	if err := registry.Register(activity_generate.New(log, generator)); err != nil {
		return Services{}, fmt.Errorf("register %s pipeline: %w", types.JobTypeActivityGenerate, err)
	}

	var jobWorker *worker.Worker
	if cfg.Worker.Enabled {
		jobWorker = worker.NewWorker(log, repos.JobRun, registry, worker.Config{
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.Worker.PollInterval,
			MaxAttempts:  cfg.Worker.MaxAttempts,
			RetryDelay:   cfg.Worker.RetryDelay,
			StaleRunning: cfg.Worker.StaleRunning,
		})
	}

	return Services{
		Jobs:        jobSvc,
		Pages:       pages,
		Tracker:     tracker,
		Search:      search,
		Processor:   processor,
		Generator:   generator,
		Scoring:     scoring,
		Textbook:    textbookSvc,
		Activity:    activitySvc,
		JobRegistry: registry,
		JobWorker:   jobWorker,
	}, nil
}
