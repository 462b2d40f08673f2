package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/dafibh/kredo/kredo-backend/internal/util"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	TxMaxAttempts int    `env:"TX_MAX_ATTEMPTS" envDefault:"5"`

	// Server
	Port        string   `env:"PORT" envDefault:"8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	Env         string   `env:"ENV" envDefault:"development"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`

	JWT       JWTConfig       `envPrefix:"JWT_"`
	Accrual   AccrualConfig   `envPrefix:"ACCRUAL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	S3        S3Config        `envPrefix:"S3_"`

	// Optional; enables the cross-instance accrual lock
	RedisURL   string        `env:"REDIS_URL"`
	RunLockTTL time.Duration `env:"RUN_LOCK_TTL" envDefault:"30m"`
}

// JWTConfig holds HS256 token validation settings
type JWTConfig struct {
	Secret   string `env:"SECRET"`
	Issuer   string `env:"ISSUER" envDefault:"kredo"`
	Audience string `env:"AUDIENCE" envDefault:"kredo-api"`
}

// AccrualConfig holds the daily accrual schedule
type AccrualConfig struct {
	// HH:MM UTC
	Time    string `env:"TIME" envDefault:"00:05"`
	Enabled bool   `env:"ENABLED" envDefault:"true"`

	// Parsed from Time
	RunAt time.Duration `env:"-"`
}

// RateLimitConfig holds per-user request limits
type RateLimitConfig struct {
	PerMinute      int `env:"PER_MINUTE" envDefault:"100"`
	WritePerMinute int `env:"WRITE_PER_MINUTE" envDefault:"20"`
	Burst          int `env:"BURST" envDefault:"10"`
}

// S3Config holds the accrual report archive bucket. An empty Bucket disables archiving.
type S3Config struct {
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Bucket          string `env:"BUCKET"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	// Optional: for MinIO/LocalStack local dev
	Endpoint string `env:"ENDPOINT"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDatabaseURL reads only DATABASE_URL, for commands that never serve HTTP
func LoadDatabaseURL() (string, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[struct {
		DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	}]()
	if err != nil {
		return "", fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg.DatabaseURL, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.RunLockTTL <= 0 {
		return fmt.Errorf("RUN_LOCK_TTL must be positive")
	}

	runAt, err := util.ParseClockTime(c.Accrual.Time)
	if err != nil {
		return fmt.Errorf("ACCRUAL_TIME: %w", err)
	}
	c.Accrual.RunAt = runAt

	return nil
}
