package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for yaml parsing of values like "30m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// ValidationConfig holds field-range and threshold settings.
type ValidationConfig struct {
	MaxWeightKg      float64 `yaml:"max_weight_kg"`
	FillCriticalPct  float64 `yaml:"fill_critical_pct"`
	FillWarningPct   float64 `yaml:"fill_warning_pct"`
	WeightCriticalKg float64 `yaml:"weight_critical_kg"`
	WeightWarningKg  float64 `yaml:"weight_warning_kg"`
	MinSatellites    int     `yaml:"min_satellites"`
}

// BufferingConfig holds tier flush settings.
type BufferingConfig struct {
	NormalInterval   Duration `yaml:"normal_interval"`
	WarningInterval  Duration `yaml:"warning_interval"`
	CriticalInterval Duration `yaml:"critical_interval"`
	SizeLimit        int      `yaml:"size_limit"`
	BatchSize        int      `yaml:"batch_size"`
	StoreTimeout     Duration `yaml:"store_timeout"`
	CleanupInterval  Duration `yaml:"cleanup_interval"`
	Retention        Duration `yaml:"retention"`
}

// DuplicatesConfig holds duplicate suppression settings.
type DuplicatesConfig struct {
	Window                 Duration `yaml:"window"`
	DailyLimit             int      `yaml:"daily_limit"`
	ConnectivityDailyLimit int      `yaml:"connectivity_daily_limit"`
	ResetHour              int      `yaml:"reset_hour"`
}

// HealthConfig holds connection health settings.
type HealthConfig struct {
	CheckInterval  Duration `yaml:"check_interval"`
	OfflineTimeout Duration `yaml:"offline_timeout"`
}

// Config is the full service configuration.
type Config struct {
	DatabaseURL  string `yaml:"database_url"`
	HTTPAddr     string `yaml:"http_addr"`
	IngestSecret string `yaml:"ingest_secret"`
	WebhookURL   string `yaml:"webhook_url"`

	Thresholds ValidationConfig `yaml:"thresholds"`
	Buffering  BufferingConfig  `yaml:"buffering"`
	Duplicates DuplicatesConfig `yaml:"duplicates"`
	Health     HealthConfig     `yaml:"health"`
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Thresholds: ValidationConfig{
			MaxWeightKg:      1000,
			FillCriticalPct:  95,
			FillWarningPct:   85,
			WeightCriticalKg: 900,
			WeightWarningKg:  700,
			MinSatellites:    3,
		},
		Buffering: BufferingConfig{
			NormalInterval:   Duration{2 * time.Hour},
			WarningInterval:  Duration{30 * time.Minute},
			CriticalInterval: Duration{5 * time.Minute},
			SizeLimit:        1000,
			BatchSize:        100,
			StoreTimeout:     Duration{10 * time.Second},
			CleanupInterval:  Duration{24 * time.Hour},
			Retention:        Duration{24 * time.Hour},
		},
		Duplicates: DuplicatesConfig{
			Window:                 Duration{time.Hour},
			DailyLimit:             5,
			ConnectivityDailyLimit: 20,
			ResetHour:              0,
		},
		Health: HealthConfig{
			CheckInterval:  Duration{2 * time.Minute},
			OfflineTimeout: Duration{5 * time.Minute},
		},
	}
}

// Load builds the configuration from defaults, an optional yaml file and
// environment overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.IngestSecret = getenvDefault("INGEST_JWT_SECRET", cfg.IngestSecret)
	cfg.WebhookURL = getenvDefault("ALERT_WEBHOOK_URL", cfg.WebhookURL)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Thresholds.MaxWeightKg <= 0 {
		return errors.New("config: max_weight_kg must be positive")
	}
	if c.Thresholds.FillWarningPct <= 0 || c.Thresholds.FillCriticalPct <= c.Thresholds.FillWarningPct {
		return errors.New("config: fill thresholds must satisfy 0 < warning < critical")
	}
	if c.Thresholds.WeightWarningKg <= 0 || c.Thresholds.WeightCriticalKg <= c.Thresholds.WeightWarningKg {
		return errors.New("config: weight thresholds must satisfy 0 < warning < critical")
	}
	if c.Thresholds.MinSatellites <= 0 {
		return errors.New("config: min_satellites must be positive")
	}
	if c.Buffering.NormalInterval.Duration <= 0 || c.Buffering.WarningInterval.Duration <= 0 || c.Buffering.CriticalInterval.Duration <= 0 {
		return errors.New("config: flush intervals must be positive")
	}
	if c.Buffering.SizeLimit <= 0 || c.Buffering.BatchSize <= 0 {
		return errors.New("config: buffer size limit and batch size must be positive")
	}
	if c.Buffering.StoreTimeout.Duration <= 0 {
		return errors.New("config: store timeout must be positive")
	}
	if c.Buffering.CleanupInterval.Duration <= 0 || c.Buffering.Retention.Duration <= 0 {
		return errors.New("config: cleanup interval and retention must be positive")
	}
	if c.Duplicates.Window.Duration <= 0 {
		return errors.New("config: duplicate window must be positive")
	}
	if c.Duplicates.DailyLimit <= 0 || c.Duplicates.ConnectivityDailyLimit <= 0 {
		return errors.New("config: daily limits must be positive")
	}
	if c.Duplicates.ResetHour < 0 || c.Duplicates.ResetHour > 23 {
		return errors.New("config: reset_hour must be within 0..23")
	}
	if c.Health.CheckInterval.Duration < time.Second {
		return errors.New("config: health check interval too small")
	}
	if c.Health.OfflineTimeout.Duration <= 0 {
		return errors.New("config: offline timeout must be positive")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
