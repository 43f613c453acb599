package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http_addr: ":9090"
thresholds:
  fill_critical_pct: 90
  fill_warning_pct: 80
buffering:
  warning_interval: 15m
  batch_size: 50
duplicates:
  reset_hour: 2
health:
  check_interval: 45s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected http_addr override, got %q", cfg.HTTPAddr)
	}
	if cfg.Thresholds.FillCriticalPct != 90 || cfg.Thresholds.FillWarningPct != 80 {
		t.Fatalf("expected threshold overrides, got %+v", cfg.Thresholds)
	}
	if cfg.Buffering.WarningInterval.Duration != 15*time.Minute {
		t.Fatalf("expected 15m warning interval, got %s", cfg.Buffering.WarningInterval.Duration)
	}
	if cfg.Buffering.BatchSize != 50 {
		t.Fatalf("expected batch size 50, got %d", cfg.Buffering.BatchSize)
	}
	if cfg.Duplicates.ResetHour != 2 {
		t.Fatalf("expected reset_hour 2, got %d", cfg.Duplicates.ResetHour)
	}
	if cfg.Health.CheckInterval.Duration != 45*time.Second {
		t.Fatalf("expected 45s check interval, got %s", cfg.Health.CheckInterval.Duration)
	}

	// Untouched keys keep their defaults.
	if cfg.Buffering.NormalInterval.Duration != 2*time.Hour {
		t.Fatalf("expected default normal interval, got %s", cfg.Buffering.NormalInterval.Duration)
	}
	if cfg.Duplicates.DailyLimit != 5 {
		t.Fatalf("expected default daily limit, got %d", cfg.Duplicates.DailyLimit)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
buffering:
  normal_interval: soon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  fill_critical_pct: 70
  fill_warning_pct: 85
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for warning above critical")
	}
}

func TestLoadRejectsBadResetHour(t *testing.T) {
	path := writeConfig(t, `
duplicates:
  reset_hour: 24
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for reset_hour 24")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("INGEST_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.IngestSecret != "s3cret" {
		t.Fatalf("expected env ingest secret, got %q", cfg.IngestSecret)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "binwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
