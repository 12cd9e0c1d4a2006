package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	StorageDriver string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string

	GeminiAPIKey      string
	GeminiModel       string
	GenerationTimeout time.Duration
	FeedbackTimeout   time.Duration

	SessionTickInterval time.Duration
	CurrentUserTTL      time.Duration
	SeedDefaults        bool

	CORSAllowedOrigins []string
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can inject values.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:          env("PORT", "8080"),
		Environment:   env("ENVIRONMENT", "development"),
		StorageDriver: strings.ToLower(env("STORAGE_DRIVER", StorageRedis)),
		DatabaseURL:   env("DATABASE_URL", ""),
		RedisURL:      env("REDIS_URL", "redis://localhost:6379/0"),
		KafkaBrokers:  splitList(env("KAFKA_BROKERS", "")),
		GeminiAPIKey:  env("GEMINI_API_KEY", ""),
		GeminiModel:   env("GEMINI_MODEL", "gemini-2.5-flash"),
		CORSAllowedOrigins: splitList(env("CORS_ALLOWED_ORIGINS",
			"http://localhost:3000,http://localhost:5173")),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(env("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.GenerationTimeout, err = parseDuration("GENERATION_TIMEOUT", env("GENERATION_TIMEOUT", "30s")); err != nil {
		return nil, err
	}
	if cfg.FeedbackTimeout, err = parseDuration("FEEDBACK_TIMEOUT", env("FEEDBACK_TIMEOUT", "15s")); err != nil {
		return nil, err
	}
	if cfg.SessionTickInterval, err = parseDuration("SESSION_TICK_INTERVAL", env("SESSION_TICK_INTERVAL", "1s")); err != nil {
		return nil, err
	}
	if cfg.CurrentUserTTL, err = parseDuration("CURRENT_USER_TTL", env("CURRENT_USER_TTL", "24h")); err != nil {
		return nil, err
	}
	if cfg.SeedDefaults, err = strconv.ParseBool(env("SEED_DEFAULTS", "true")); err != nil {
		return nil, fmt.Errorf("invalid SEED_DEFAULTS: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis storage driver")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.SessionTickInterval <= 0 {
		return fmt.Errorf("SESSION_TICK_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
