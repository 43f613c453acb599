package application

import (
	"strings"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// Classification reason codes.
const (
	ReasonCriticalBinLevel = "critical_bin_level"
	ReasonWarningBinLevel  = "warning_bin_level"
	ReasonCriticalWeight   = "critical_weight"
	ReasonWarningWeight    = "warning_weight"
	ReasonSensorFailure    = "sensor_failure"
	ReasonDataWarnings     = "data_warnings"
	ReasonGPSIssues        = "gps_issues"
)

// ClassifierConfig holds the priority thresholds.
type ClassifierConfig struct {
	FillCriticalPct  float64
	FillWarningPct   float64
	WeightCriticalKg float64
	WeightWarningKg  float64
	MinSatellites    int
}

// DefaultClassifierConfig returns the production thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		FillCriticalPct:  95,
		FillWarningPct:   85,
		WeightCriticalKg: 900,
		WeightWarningKg:  700,
		MinSatellites:    3,
	}
}

var criticalCategories = map[telemetry.ErrorCategory]bool{
	telemetry.CategoryMalfunction:  true,
	telemetry.CategoryPowerFailure: true,
}

var warningCategories = map[telemetry.ErrorCategory]bool{
	telemetry.CategoryCommunicationLost: true,
	telemetry.CategoryGPSInvalid:        true,
	telemetry.CategoryWeightAnomaly:     true,
	telemetry.CategoryUnknownError:      true,
}

// Classification is the priority decision for one accepted event.
type Classification struct {
	Priority        telemetry.Priority
	Reasons         []string
	SaveImmediately bool
	ShouldBuffer    bool
}

// Classifier assigns a priority tier to validated, non-suppressed events.
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier constructs a classifier.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	defaults := DefaultClassifierConfig()
	if cfg.FillCriticalPct <= 0 {
		cfg.FillCriticalPct = defaults.FillCriticalPct
	}
	if cfg.FillWarningPct <= 0 {
		cfg.FillWarningPct = defaults.FillWarningPct
	}
	if cfg.WeightCriticalKg <= 0 {
		cfg.WeightCriticalKg = defaults.WeightCriticalKg
	}
	if cfg.WeightWarningKg <= 0 {
		cfg.WeightWarningKg = defaults.WeightWarningKg
	}
	if cfg.MinSatellites <= 0 {
		cfg.MinSatellites = defaults.MinSatellites
	}
	return &Classifier{cfg: cfg}
}

func categoryReason(category telemetry.ErrorCategory) string {
	return "error_" + strings.ToLower(string(category))
}

// Classify combines the error category, threshold checks and validation
// warnings into a priority. Bin-level and weight checks can upgrade a
// category-derived priority but never downgrade it.
func (c *Classifier) Classify(event telemetry.TelemetryEvent, validation ValidationResult, category telemetry.ErrorCategory) Classification {
	priority := telemetry.PriorityNormal
	var reasons []string

	switch {
	case criticalCategories[category]:
		priority = telemetry.PriorityCritical
		reasons = append(reasons, categoryReason(category))
	case warningCategories[category]:
		priority = telemetry.PriorityWarning
		reasons = append(reasons, categoryReason(category))
	}

	if event.FillLevelPct >= c.cfg.FillCriticalPct {
		priority = telemetry.PriorityCritical
		reasons = append(reasons, ReasonCriticalBinLevel)
	} else if event.FillLevelPct >= c.cfg.FillWarningPct && priority == telemetry.PriorityNormal {
		priority = telemetry.PriorityWarning
		reasons = append(reasons, ReasonWarningBinLevel)
	}

	if event.WeightKg >= c.cfg.WeightCriticalKg {
		priority = telemetry.PriorityCritical
		reasons = append(reasons, ReasonCriticalWeight)
	} else if event.WeightKg >= c.cfg.WeightWarningKg && priority == telemetry.PriorityNormal {
		priority = telemetry.PriorityWarning
		reasons = append(reasons, ReasonWarningWeight)
	}

	// All three sensors reading exactly zero at once means the sensor head is
	// dead, not an empty bin.
	if event.WeightKg == 0 && event.FillLevelPct == 0 && event.DistanceCm == 0 {
		priority = telemetry.PriorityCritical
		reasons = append(reasons, ReasonSensorFailure)
	}

	if validation.HasWarnings() && priority == telemetry.PriorityNormal {
		priority = telemetry.PriorityWarning
		reasons = append(reasons, ReasonDataWarnings)
	}

	if event.GPSUnreliable(c.cfg.MinSatellites) && priority == telemetry.PriorityNormal {
		priority = telemetry.PriorityWarning
		reasons = append(reasons, ReasonGPSIssues)
	}

	return Classification{
		Priority:        priority,
		Reasons:         reasons,
		SaveImmediately: priority == telemetry.PriorityCritical,
		ShouldBuffer:    priority != telemetry.PriorityCritical,
	}
}
