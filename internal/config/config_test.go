package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Store != "sqlite" || cfg.FactSource != "catalog" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.FactTimeout != 20*time.Second || cfg.HintSize != 20 || cfg.StartTokens != 3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("log level = %v, want INFO", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "redis")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("FACT_TIMEOUT", "5s")
	t.Setenv("FACT_RETRIES", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != "redis" || cfg.LogLevel != slog.LevelDebug || cfg.FactTimeout != 5*time.Second || cfg.FactRetries != 4 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown store", map[string]string{"STORE": "mongo"}, "STORE"},
		{"unknown source", map[string]string{"FACT_SOURCE": "radio"}, "FACT_SOURCE"},
		{"gemini without key", map[string]string{"FACT_SOURCE": "gemini"}, "GEMINI_API_KEY"},
		{"too many tokens", map[string]string{"START_TOKENS": "9"}, "START_TOKENS"},
		{"bad duration", map[string]string{"FACT_TIMEOUT": "soon"}, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
