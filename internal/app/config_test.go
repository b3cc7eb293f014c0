package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || !cfg.Worker.Enabled || cfg.Worker.Concurrency != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Redis.Addr != "" || cfg.OpenAI.APIKey != "" {
		t.Fatal("redis and openai should default to the in-process fallbacks")
	}
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
log_mode: production
http:
  addr: ":9090"
  cors_origins: ["https://school.example"]
postgres:
  host: db.internal
  name: textbooks_test
worker:
  concurrency: 8
  poll_interval: 250ms
otel:
  exporter: stdout
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WORKER_CONCURRENCY", "2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogMode != "production" || cfg.HTTP.Addr != ":9090" || cfg.Postgres.Host != "db.internal" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.Postgres.Port != "5432" {
		t.Fatalf("defaults lost under yaml: port=%q", cfg.Postgres.Port)
	}
	if cfg.Worker.PollInterval != 250*time.Millisecond || cfg.Otel.Exporter != "stdout" {
		t.Fatalf("yaml durations/strings: %+v %+v", cfg.Worker, cfg.Otel)
	}
	if cfg.Worker.Concurrency != 2 {
		t.Fatalf("env should override yaml, concurrency=%d", cfg.Worker.Concurrency)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Otel.SampleRatio != 0.5 {
		t.Fatalf("sample ratio=%v", cfg.Otel.SampleRatio)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_ENABLED", "false")
	t.Setenv("WORKER_ENABLED", "false")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when nothing is enabled")
	}

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_ENABLED", "true")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
