package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Empty DATABASE_URL keeps jobs in process memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	ExaAPIKey     string        `envconfig:"EXA_API_KEY"`
	ExaBaseURL    string        `envconfig:"EXA_BASE_URL" default:"https://api.exa.ai"`
	SearchTimeout time.Duration `envconfig:"SEARCH_TIMEOUT" default:"20s"`

	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	LLMTimeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	RetryMax             uint64        `envconfig:"RETRY_MAX" default:"1"`
	RetryInitialInterval time.Duration `envconfig:"RETRY_INITIAL_INTERVAL" default:"500ms"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"movewise-reports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Shared bearer secret for the HTTP API. Empty disables auth.
	APIKey string `envconfig:"API_KEY"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"2s"`
	WorkerConcurrency  int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	StaleJobAfter      time.Duration `envconfig:"STALE_JOB_AFTER" default:"15m"`
	SweepSpec          string        `envconfig:"SWEEP_SPEC" default:"@every 5m"`

	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	CachePruneSpec string        `envconfig:"CACHE_PRUNE_SPEC" default:"@every 1h"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MOVEWISE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("MOVEWISE_WORKER_CONCURRENCY must be at least 1, got %d", cfg.WorkerConcurrency)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasExa() bool {
	return c.ExaAPIKey != ""
}

func (c *Config) HasAuth() bool {
	return c.APIKey != ""
}
