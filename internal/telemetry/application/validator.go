package application

import (
	"fmt"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// ValidatorConfig holds the field-range limits.
type ValidatorConfig struct {
	MaxWeightKg   float64
	MinSatellites int
}

// DefaultValidatorConfig returns the limits used in production.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxWeightKg:   1000,
		MinSatellites: 3,
	}
}

// ValidationResult carries hard errors and non-fatal warnings for an event.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// HasWarnings reports whether any non-fatal signal was raised.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Validator checks raw events against field ranges. Errors reject the event;
// warnings feed the classifier.
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator constructs a validator.
func NewValidator(cfg ValidatorConfig) *Validator {
	if cfg.MaxWeightKg <= 0 {
		cfg.MaxWeightKg = DefaultValidatorConfig().MaxWeightKg
	}
	if cfg.MinSatellites <= 0 {
		cfg.MinSatellites = DefaultValidatorConfig().MinSatellites
	}
	return &Validator{cfg: cfg}
}

// Validate checks a single event. It has no side effects.
func (v *Validator) Validate(event telemetry.TelemetryEvent) ValidationResult {
	result := ValidationResult{IsValid: true}

	if event.UnitID == "" {
		result.Errors = append(result.Errors, "unit id missing")
	}
	if event.WeightKg < 0 || event.WeightKg > v.cfg.MaxWeightKg {
		result.Errors = append(result.Errors, fmt.Sprintf("weight %.2f out of range [0, %.0f]", event.WeightKg, v.cfg.MaxWeightKg))
	}
	if event.FillLevelPct < 0 || event.FillLevelPct > 100 {
		result.Errors = append(result.Errors, fmt.Sprintf("fill level %.2f out of range [0, 100]", event.FillLevelPct))
	}

	if event.HasZeroCoordinates() {
		result.Warnings = append(result.Warnings, "gps coordinates are (0,0)")
	}
	if event.SatelliteCount < v.cfg.MinSatellites {
		result.Warnings = append(result.Warnings, fmt.Sprintf("satellite count %d below minimum %d", event.SatelliteCount, v.cfg.MinSatellites))
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
