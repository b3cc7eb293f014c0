package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apphttp "github.com/yungbote/textbook-backend/internal/http"
	"github.com/yungbote/textbook-backend/internal/observability"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server
	Metrics  *observability.Metrics

	shutdownOTel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
		Version:     cfg.Otel.Version,
		Exporter:    cfg.Otel.Exporter,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.Init()
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = shutdownOTel(ctx)
		log.Sync()
		return nil, err
	}
	theDB := clients.Postgres.DB()

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = shutdownOTel(ctx)
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		shutdownOTel: shutdownOTel,
	}
	if cfg.HTTP.Enabled {
		handlerset := wireHandlers(log, serviceset, clients)
		a.Server = apphttp.NewServer(apphttp.RouterConfig{
			Log:             log,
			ServiceName:     cfg.Otel.ServiceName,
			CORSOrigins:     cfg.HTTP.CORSOrigins,
			Metrics:         metrics,
			TextbookHandler: handlerset.Textbook,
			ActivityHandler: handlerset.Activity,
			TrackingHandler: handlerset.Tracking,
			JobHandler:      handlerset.Job,
			HealthHandler:   handlerset.Health,
		})
	}
	return a, nil
}

// Run blocks until ctx is canceled or a component fails. The HTTP server and
// the job worker share one errgroup.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Server != nil {
		g.Go(func() error {
			a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
			return a.Server.Run(gctx, a.Cfg.HTTP.Addr, a.Cfg.HTTP.ShutdownTimeout)
		})
	}
	if a.Services.JobWorker != nil {
		g.Go(func() error {
			return a.Services.JobWorker.Run(gctx)
		})
	}
	a.Metrics.StartJobQueueCollector(gctx, a.Log, a.DB, a.Cfg.Metrics.QueueSampleInterval)

	err := g.Wait()
	if a.Services.Processor != nil {
		a.Services.Processor.Wait()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
