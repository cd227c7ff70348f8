package config

import (
	"context"
	"os"
	"testing"
	"time"

	"taskboard/internal/storage"
)

func clearEnvVars(vars []string) {
	for _, k := range vars {
		os.Unsetenv(k)
	}
}

var allEnvVars = []string{
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "ENVIRONMENT",
	"STORAGE_DRIVER", "STORAGE_DIR", "STORAGE_DSN",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"JWT_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "BCRYPT_COST",
	"SEED_ADMIN_USER", "SEED_ADMIN_EMAIL", "SEED_ADMIN_PASS",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_CLEANUP",
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}
	if config.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", config.Server.Port)
	}
	if config.Storage.Driver != "file" {
		t.Errorf("Expected default storage driver 'file', got %s", config.Storage.Driver)
	}
	if config.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("Expected default access token TTL 15m, got %v", config.Auth.AccessTokenTTL)
	}
	if config.Auth.BCryptCost != 10 {
		t.Errorf("Expected default bcrypt cost 10, got %d", config.Auth.BCryptCost)
	}
	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting enabled by default")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnvVars(allEnvVars)
	os.Setenv("STORAGE_DRIVER", "sqlite")
	os.Setenv("STORAGE_DSN", "/tmp/board.db")
	os.Setenv("ACCESS_TOKEN_TTL", "1h")
	defer clearEnvVars(allEnvVars)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Storage.Driver != "sqlite" {
		t.Errorf("Expected storage driver 'sqlite', got %s", config.Storage.Driver)
	}
	if config.Storage.DSN != "/tmp/board.db" {
		t.Errorf("Expected DSN '/tmp/board.db', got %s", config.Storage.DSN)
	}
	if config.Auth.AccessTokenTTL != time.Hour {
		t.Errorf("Expected access token TTL 1h, got %v", config.Auth.AccessTokenTTL)
	}
}

func TestLoadConfig_ProductionRequiresSecret(t *testing.T) {
	clearEnvVars(allEnvVars)
	os.Setenv("ENVIRONMENT", "production")
	defer clearEnvVars(allEnvVars)

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected an error when JWT secret is unset in production")
	}
}

func TestLoadConfig_UnknownStorageDriver(t *testing.T) {
	clearEnvVars(allEnvVars)
	os.Setenv("STORAGE_DRIVER", "mongodb")
	defer clearEnvVars(allEnvVars)

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected an error for an unknown storage driver")
	}
}

func TestDashboard_DefaultsAndRoundTrip(t *testing.T) {
	kv, err := storage.OpenFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open file KV: %v", err)
	}
	ctx := context.Background()

	// Absent record loads defaults.
	d, err := LoadDashboard(ctx, kv)
	if err != nil {
		t.Fatalf("Expected defaults for absent record, got: %v", err)
	}
	if d.AppName != "Taskboard" {
		t.Errorf("Expected default app name 'Taskboard', got %s", d.AppName)
	}
	if d.Timing.UpdateIntervals.Deadlines != 60000 {
		t.Errorf("Expected default deadline interval 60000ms, got %d", d.Timing.UpdateIntervals.Deadlines)
	}

	d.AppName = "Team Board"
	d.Features.PDFReports = false
	if err := SaveDashboard(ctx, kv, d); err != nil {
		t.Fatalf("Failed to save dashboard config: %v", err)
	}

	got, err := LoadDashboard(ctx, kv)
	if err != nil {
		t.Fatalf("Failed to reload dashboard config: %v", err)
	}
	if got.AppName != "Team Board" {
		t.Errorf("Expected app name 'Team Board', got %s", got.AppName)
	}
	if got.Features.PDFReports {
		t.Error("Expected PDF reports toggle to persist as disabled")
	}
}

func TestDashboard_IntervalConversion(t *testing.T) {
	d := DefaultDashboard()
	if d.ClockInterval() != time.Second {
		t.Errorf("Expected 1s clock interval, got %v", d.ClockInterval())
	}
	if d.DeadlinesInterval() != time.Minute {
		t.Errorf("Expected 1m deadline interval, got %v", d.DeadlinesInterval())
	}
	if d.StatsInterval() != 30*time.Second {
		t.Errorf("Expected 30s stats interval, got %v", d.StatsInterval())
	}

	d.Timing.UpdateIntervals.Clock = 0
	if d.ClockInterval() != time.Second {
		t.Errorf("Expected fallback for non-positive interval, got %v", d.ClockInterval())
	}
}
