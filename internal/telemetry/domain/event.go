package telemetry

import (
	"strings"
	"time"
)

// Priority orders how urgently a record must reach the durable store.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityWarning  Priority = "warning"
	PriorityNormal   Priority = "normal"
)

// ErrorCategory is the normalized class of a reported device error.
type ErrorCategory string

const (
	CategoryMalfunction       ErrorCategory = "MALFUNCTION"
	CategoryCommunicationLost ErrorCategory = "COMMUNICATION_LOST"
	CategoryPowerFailure      ErrorCategory = "POWER_FAILURE"
	CategoryGPSInvalid        ErrorCategory = "GPS_INVALID"
	CategoryWeightAnomaly     ErrorCategory = "WEIGHT_ANOMALY"
	CategoryUnknownError      ErrorCategory = "UNKNOWN_ERROR"
)

// GPS is a reported coordinate pair.
type GPS struct {
	Lat float64
	Lng float64
}

// TelemetryEvent is one raw reading pushed by a bin unit. Radio fields are
// optional: not every firmware revision reports them.
type TelemetryEvent struct {
	UnitID         string
	WeightKg       float64
	DistanceCm     float64
	FillLevelPct   float64
	GPS            GPS
	GPSValid       bool
	SatelliteCount int
	ErrorText      string
	ObservedAt     time.Time

	SignalQuality *int
	Registration  *string
	SessionActive *bool
	UptimeSeconds *int64
	MessageSeq    *int64
}

// HasZeroCoordinates reports whether the fix is exactly (0,0), which real
// units never produce.
func (e TelemetryEvent) HasZeroCoordinates() bool {
	return e.GPS.Lat == 0 && e.GPS.Lng == 0
}

// GPSUnreliable reports whether the fix should not be trusted.
func (e TelemetryEvent) GPSUnreliable(minSatellites int) bool {
	return !e.GPSValid || e.SatelliteCount < minSatellites || e.HasZeroCoordinates()
}

var categoryKeywords = []struct {
	category ErrorCategory
	keywords []string
}{
	{CategoryMalfunction, []string{"malfunction", "sensor fault", "hardware", "defect"}},
	{CategoryCommunicationLost, []string{"communication", "connection lost", "no signal", "timeout", "offline"}},
	{CategoryPowerFailure, []string{"power", "battery", "voltage"}},
	{CategoryGPSInvalid, []string{"gps", "position", "no fix"}},
	{CategoryWeightAnomaly, []string{"weight", "load cell", "overload"}},
}

// CategorizeErrorText maps free-form device error text to a category via
// keyword matching. Unmatched non-empty text becomes UNKNOWN_ERROR.
func CategorizeErrorText(text string) (ErrorCategory, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	lowered := strings.ToLower(trimmed)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.category, true
			}
		}
	}
	return CategoryUnknownError, true
}

// ConnectivityCategory reports whether a category describes loss of contact
// rather than a sensor defect. These get a larger daily reporting ceiling.
func ConnectivityCategory(category ErrorCategory) bool {
	return category == CategoryCommunicationLost || category == CategoryPowerFailure
}
