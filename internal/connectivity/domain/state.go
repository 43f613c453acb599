package connectivity

import "time"

// Status is the smoothed connection state of a unit.
type Status string

const (
	StatusOnline    Status = "online"
	StatusSuspected Status = "suspected"
	StatusOffline   Status = "offline"
)

// Hysteresis thresholds for the state machine.
const (
	ScoreOnline       = 60
	ScoreSuspected    = 30
	OfflineLowStreaks = 2
)

// UnitHealth is the current connection health of one unit.
type UnitHealth struct {
	UnitID    string    `json:"unitId"`
	Status    Status    `json:"status"`
	Score     int       `json:"score"`
	LowStreak int       `json:"lowStreak"`
	MidStreak int       `json:"midStreak"`
	LastSeen  time.Time `json:"lastSeen"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Advance applies one scored tick to the state machine and reports whether
// the unit transitioned into offline. A single low score only suspects the
// unit; it takes OfflineLowStreaks consecutive low ticks to declare offline.
// A mid score never recovers an already-offline unit.
func Advance(health *UnitHealth, score int) (wentOffline bool) {
	previous := health.Status
	switch {
	case score >= ScoreOnline:
		health.Status = StatusOnline
		health.LowStreak = 0
		health.MidStreak = 0
	case score >= ScoreSuspected:
		health.MidStreak++
		health.LowStreak = 0
		if health.Status != StatusOffline {
			health.Status = StatusSuspected
		}
	default:
		health.LowStreak++
		if health.LowStreak >= OfflineLowStreaks {
			health.Status = StatusOffline
		} else if health.Status != StatusOffline {
			health.Status = StatusSuspected
		}
	}
	health.Score = score
	return previous != StatusOffline && health.Status == StatusOffline
}
