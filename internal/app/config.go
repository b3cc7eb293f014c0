package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/textbook-backend/internal/pkg/envutil"
)

type Config struct {
	LogMode string `yaml:"log_mode"`

	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Worker   WorkerConfig   `yaml:"worker"`
	Otel     OtelConfig     `yaml:"otel"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type HTTPConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig with an empty Addr selects the in-process store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Mode            string `yaml:"mode"`
	LocalRoot       string `yaml:"local_root"`
	Bucket          string `yaml:"bucket"`
	EmulatorHost    string `yaml:"emulator_host"`
	CredentialsJSON string `yaml:"credentials_json"`
}

// OpenAIConfig with an empty APIKey selects the mock collaborator.
type OpenAIConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float64       `yaml:"temperature"`
}

type WorkerConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Concurrency        int           `yaml:"concurrency"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	MaxAttempts        int           `yaml:"max_attempts"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	StaleRunning       time.Duration `yaml:"stale_running"`
	InsightConcurrency int           `yaml:"insight_concurrency"`
}

type OtelConfig struct {
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	Version     string  `yaml:"version"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type MetricsConfig struct {
	Enabled             bool          `yaml:"enabled"`
	QueueSampleInterval time.Duration `yaml:"queue_sample_interval"`
}

func defaultConfig() Config {
	return Config{
		LogMode: "development",
		HTTP: HTTPConfig{
			Enabled:         true,
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "textbooks",
			SSLMode: "disable",
		},
		Storage: StorageConfig{Mode: "local", LocalRoot: "./data/uploads"},
		OpenAI:  OpenAIConfig{Timeout: 120 * time.Second, MaxRetries: 2, Temperature: 0.4},
		Worker: WorkerConfig{
			Enabled:            true,
			Concurrency:        4,
			PollInterval:       time.Second,
			MaxAttempts:        3,
			RetryDelay:         30 * time.Second,
			StaleRunning:       10 * time.Minute,
			InsightConcurrency: 4,
		},
		Otel:    OtelConfig{ServiceName: "textbook-backend", Environment: "development", Exporter: "none", SampleRatio: 1},
		Metrics: MetricsConfig{Enabled: true, QueueSampleInterval: 15 * time.Second},
	}
}

// LoadConfig layers defaults, then the YAML file named by CONFIG_FILE, then
// environment variables.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)

	cfg.HTTP.Enabled = envutil.Bool("HTTP_ENABLED", cfg.HTTP.Enabled)
	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTP.Addr = ":" + port
	}
	cfg.HTTP.ShutdownTimeout = envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)
	if origins := envutil.String("CORS_ORIGINS", ""); origins != "" {
		cfg.HTTP.CORSOrigins = splitList(origins)
	}

	cfg.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = envutil.String("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.Postgres.Name)
	cfg.Postgres.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)
	cfg.Postgres.MaxOpenConns = envutil.Int("POSTGRES_MAX_OPEN_CONNS", cfg.Postgres.MaxOpenConns)
	cfg.Postgres.MaxIdleConns = envutil.Int("POSTGRES_MAX_IDLE_CONNS", cfg.Postgres.MaxIdleConns)
	cfg.Postgres.ConnMaxLifetime = envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", cfg.Postgres.ConnMaxLifetime)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)

	cfg.Storage.Mode = envutil.String("STORAGE_MODE", cfg.Storage.Mode)
	cfg.Storage.LocalRoot = envutil.String("STORAGE_LOCAL_ROOT", cfg.Storage.LocalRoot)
	cfg.Storage.Bucket = envutil.String("GCS_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.Storage.EmulatorHost)
	cfg.Storage.CredentialsJSON = envutil.String("GCP_CREDENTIALS_JSON", cfg.Storage.CredentialsJSON)

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.Timeout = envutil.Duration("OPENAI_TIMEOUT", cfg.OpenAI.Timeout)
	cfg.OpenAI.MaxRetries = envutil.Int("OPENAI_MAX_RETRIES", cfg.OpenAI.MaxRetries)

	cfg.Worker.Enabled = envutil.Bool("WORKER_ENABLED", cfg.Worker.Enabled)
	cfg.Worker.Concurrency = envutil.Int("WORKER_CONCURRENCY", cfg.Worker.Concurrency)
	cfg.Worker.PollInterval = envutil.Duration("WORKER_POLL_INTERVAL", cfg.Worker.PollInterval)
	cfg.Worker.MaxAttempts = envutil.Int("JOB_MAX_ATTEMPTS", cfg.Worker.MaxAttempts)
	cfg.Worker.RetryDelay = envutil.Duration("JOB_RETRY_DELAY", cfg.Worker.RetryDelay)
	cfg.Worker.StaleRunning = envutil.Duration("JOB_STALE_RUNNING", cfg.Worker.StaleRunning)
	cfg.Worker.InsightConcurrency = envutil.Int("INSIGHT_CONCURRENCY", cfg.Worker.InsightConcurrency)

	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Environment = envutil.String("APP_ENV", cfg.Otel.Environment)
	cfg.Otel.Version = envutil.String("APP_VERSION", cfg.Otel.Version)
	cfg.Otel.Exporter = envutil.String("OTEL_EXPORTER", cfg.Otel.Exporter)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.Otel.SampleRatio)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.QueueSampleInterval = envutil.Duration("METRICS_QUEUE_SAMPLE_INTERVAL", cfg.Metrics.QueueSampleInterval)
}

func (c Config) validate() error {
	if !c.HTTP.Enabled && !c.Worker.Enabled {
		return fmt.Errorf("config: HTTP_ENABLED and WORKER_ENABLED are both false")
	}
	if strings.TrimSpace(c.Postgres.Host) == "" || strings.TrimSpace(c.Postgres.Name) == "" {
		return fmt.Errorf("config: postgres host and name are required")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: WORKER_CONCURRENCY must be >= 1, got %d", c.Worker.Concurrency)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
