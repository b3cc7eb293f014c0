package app

import (
	"context"
	"fmt"

	"github.com/yungbote/textbook-backend/internal/data/db"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/cache"
	"github.com/yungbote/textbook-backend/internal/platform/openai"
	"github.com/yungbote/textbook-backend/internal/platform/storage"
)

type Clients struct {
	Postgres *db.PostgresService
	Cache    cache.Store
	Storage  storage.Storage
	OpenAI   openai.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Postgres
	pg, err := db.NewPostgresService(log, db.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Name:     cfg.Postgres.Name,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.Pool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime); err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
	}

	// Cache
	var store cache.Store
	if cfg.Redis.Addr != "" {
		store, err = cache.NewRedisStore(log, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = pg.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set; using in-process cache")
		store = cache.NewMemoryStore()
	}

	// Storage
	mode, err := storage.ParseMode(cfg.Storage.Mode)
	if err != nil {
		_ = store.Close()
		_ = pg.Close()
		return Clients{}, err
	}
	files, err := storage.New(ctx, log, storage.Config{
		Mode:            mode,
		LocalRoot:       cfg.Storage.LocalRoot,
		Bucket:          cfg.Storage.Bucket,
		EmulatorHost:    cfg.Storage.EmulatorHost,
		CredentialsJSON: cfg.Storage.CredentialsJSON,
	})
	if err != nil {
		_ = store.Close()
		_ = pg.Close()
		return Clients{}, fmt.Errorf("init storage: %w", err)
	}

	// Openai
	var ai openai.Client
	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set; activities will use fallback content")
		ai = openai.NewMockClient()
	} else {
		ai, err = openai.NewClient(log, openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Timeout:     cfg.OpenAI.Timeout,
			MaxRetries:  cfg.OpenAI.MaxRetries,
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			_ = store.Close()
			_ = pg.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
	}

	return Clients{
		Postgres: pg,
		Cache:    store,
		Storage:  files,
		OpenAI:   ai,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
}
