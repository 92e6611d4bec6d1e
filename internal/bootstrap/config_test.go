package bootstrap

import (
	"log/slog"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerAddr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.ServerAddr)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected localhost:6379, got %s", cfg.RedisAddr)
	}
	if cfg.AnalyticsQueueSize != 1024 {
		t.Errorf("expected queue size 1024, got %d", cfg.AnalyticsQueueSize)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("ANALYTICS_QUEUE_SIZE", "64")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadConfig()

	if cfg.ServerAddr != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.ServerAddr)
	}
	if cfg.AnalyticsQueueSize != 64 {
		t.Errorf("expected queue size 64, got %d", cfg.AnalyticsQueueSize)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("unparseable int should fall back to the default, got %d", cfg.RedisDB)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.raw); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}
