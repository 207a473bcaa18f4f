package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	PublicURL string     `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	SPADir    string     `env:"SPA_DIR"`
	Strict    bool       `env:"STRICT" envDefault:"false"`

	Store    string `env:"STORE" envDefault:"sqlite"`
	DBPath   string `env:"DB_PATH" envDefault:"data/mixzter.db"`
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	FactSource   string        `env:"FACT_SOURCE" envDefault:"catalog"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	FactTimeout  time.Duration `env:"FACT_TIMEOUT" envDefault:"20s"`
	FactRetries  uint          `env:"FACT_RETRIES" envDefault:"2"`
	HintSize     int           `env:"EXCLUDE_HINT_SIZE" envDefault:"20"`
	StartTokens  int           `env:"START_TOKENS" envDefault:"3"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("STORE must be sqlite or redis, got %q", c.Store)
	}
	switch c.FactSource {
	case "catalog":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when FACT_SOURCE=gemini")
		}
	default:
		return fmt.Errorf("FACT_SOURCE must be catalog or gemini, got %q", c.FactSource)
	}
	if c.StartTokens < 0 || c.StartTokens > 5 {
		return fmt.Errorf("START_TOKENS must be between 0 and 5, got %d", c.StartTokens)
	}
	return nil
}
