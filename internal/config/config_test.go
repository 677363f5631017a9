package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
redis:
  addr: localhost:6379
catalog:
  ttl: 5m
game:
  maxLives: 5
  maxQuestions: 10
  timeLimit: 90s
auth:
  jwtSecret: s3cret
leaderboard:
  defaultLimit: 25
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected server/redis config: %+v", cfg)
	}
	if cfg.Game.MaxLives != 5 || cfg.Game.MaxQuestions != 10 {
		t.Fatalf("unexpected game config: %+v", cfg.Game)
	}
	if got := TTLDuration(cfg.Game.TimeLimit, time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s time limit, got %s", got)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Leaderboard.DefaultLimit != 25 {
		t.Fatalf("unexpected auth/leaderboard config: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "" || cfg.Postgres.URL != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
	if got := TTLDuration("2h", time.Minute); got != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", got)
	}
}
