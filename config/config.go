package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the process configuration
type Config struct {
	// AWS
	AWSRegion         string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	// SageMaker
	RoleARN       string `env:"SAGEMAKER_ROLE_ARN"`
	DefaultBucket string `env:"SAGEMAKER_DEFAULT_BUCKET"`

	// Dataset source
	DatasetsServerURL string `env:"HF_DATASETS_SERVER_URL" envDefault:"https://datasets-server.huggingface.co"`
	HFToken           string `env:"HF_TOKEN"`

	// Job monitoring
	PollInterval time.Duration `env:"JOB_POLL_INTERVAL" envDefault:"30s"`

	// Locator store and run history. DatabaseURL is optional; when empty the
	// file store at LocatorStorePath is used and runs are not recorded.
	DatabaseURL      string `env:"DATABASE_URL"`
	LocatorStorePath string `env:"LOCATOR_STORE_PATH" envDefault:".launcher/store.yaml"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables, reading a .env file first if present
func Load() (*Config, error) {
	// A missing .env file is fine outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("JOB_POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}

	return cfg, nil
}
