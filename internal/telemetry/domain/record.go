package telemetry

import (
	"context"
)

// Status labels attached to persisted records.
const (
	StatusAlert   = "alert"
	StatusWatch   = "watch"
	StatusRoutine = "routine"
)

// ClassifiedRecord is an accepted event together with its classification.
// It is created once per accepted event and never mutated afterwards.
type ClassifiedRecord struct {
	Event    TelemetryEvent
	Priority Priority
	Status   string
	Category ErrorCategory
	Reasons  []string
}

// StatusForPriority maps a priority tier to its record status label.
func StatusForPriority(priority Priority) string {
	switch priority {
	case PriorityCritical:
		return StatusAlert
	case PriorityWarning:
		return StatusWatch
	default:
		return StatusRoutine
	}
}

// RecordRepository persists classified telemetry records.
type RecordRepository interface {
	Insert(ctx context.Context, record ClassifiedRecord) (string, error)
}
