package application

import (
	"sync/atomic"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// StatsSnapshot is a read-only view of pipeline counters.
type StatsSnapshot struct {
	Received      int64                      `json:"received"`
	Saved         int64                      `json:"saved"`
	Filtered      int64                      `json:"filtered"`
	CriticalSaved int64                      `json:"criticalSaved"`
	BufferSizes   map[telemetry.Priority]int `json:"bufferSizes"`
}

// StatsTracker keeps aggregate pipeline counters for diagnostics.
type StatsTracker struct {
	received      atomic.Int64
	saved         atomic.Int64
	filtered      atomic.Int64
	criticalSaved atomic.Int64
}

// NewStatsTracker constructs a tracker with zeroed counters.
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{}
}

// IncReceived counts an arriving event.
func (s *StatsTracker) IncReceived() { s.received.Add(1) }

// IncSaved counts a successfully persisted record.
func (s *StatsTracker) IncSaved() { s.saved.Add(1) }

// IncFiltered counts a rejected or suppressed event.
func (s *StatsTracker) IncFiltered() { s.filtered.Add(1) }

// IncCriticalSaved counts an immediately persisted critical record.
func (s *StatsTracker) IncCriticalSaved() { s.criticalSaved.Add(1) }

// Snapshot returns current counter values plus buffer occupancy.
func (s *StatsTracker) Snapshot(sizes map[telemetry.Priority]int) StatsSnapshot {
	return StatsSnapshot{
		Received:      s.received.Load(),
		Saved:         s.saved.Load(),
		Filtered:      s.filtered.Load(),
		CriticalSaved: s.criticalSaved.Load(),
		BufferSizes:   sizes,
	}
}
