package application

import (
	"time"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// ScorerConfig tunes the 0-100 connection score.
type ScorerConfig struct {
	FreshAge       time.Duration
	OfflineTimeout time.Duration
	MinSatellites  int
	SignalGood     int
	SignalFair     int
	Registered     []string
	UptimeProgress time.Duration
}

// DefaultScorerConfig returns the production scoring settings.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		FreshAge:       2 * time.Minute,
		OfflineTimeout: 5 * time.Minute,
		MinSatellites:  3,
		SignalGood:     10,
		SignalFair:     5,
		Registered:     []string{"registered", "registered_home", "registered_roaming"},
		UptimeProgress: 60 * time.Second,
	}
}

// Sample is the most recent telemetry known for a unit.
type Sample struct {
	Event      telemetry.TelemetryEvent
	ReceivedAt time.Time
}

// history holds the counters remembered from the previous check.
type history struct {
	uptimeSeconds *int64
	messageSeq    *int64
}

// Scorer computes a connection score from freshness and whatever radio
// signals the firmware happens to report. Absent optional fields simply
// contribute nothing.
type Scorer struct {
	cfg ScorerConfig
}

// NewScorer constructs a scorer.
func NewScorer(cfg ScorerConfig) *Scorer {
	defaults := DefaultScorerConfig()
	if cfg.FreshAge <= 0 {
		cfg.FreshAge = defaults.FreshAge
	}
	if cfg.OfflineTimeout <= 0 {
		cfg.OfflineTimeout = defaults.OfflineTimeout
	}
	if cfg.MinSatellites <= 0 {
		cfg.MinSatellites = defaults.MinSatellites
	}
	if cfg.SignalGood <= 0 {
		cfg.SignalGood = defaults.SignalGood
	}
	if cfg.SignalFair <= 0 {
		cfg.SignalFair = defaults.SignalFair
	}
	if len(cfg.Registered) == 0 {
		cfg.Registered = defaults.Registered
	}
	if cfg.UptimeProgress <= 0 {
		cfg.UptimeProgress = defaults.UptimeProgress
	}
	return &Scorer{cfg: cfg}
}

func (s *Scorer) registered(value string) bool {
	for _, candidate := range s.cfg.Registered {
		if candidate == value {
			return true
		}
	}
	return false
}

// Score computes the connection score for a unit at time now. prev carries
// the uptime and sequence counters seen at the previous check.
func (s *Scorer) Score(now time.Time, sample Sample, prev history) int {
	score := 0
	event := sample.Event

	age := now.Sub(sample.ReceivedAt)
	switch {
	case age <= s.cfg.FreshAge:
		score += 40
	case age <= s.cfg.OfflineTimeout:
		score += 20
	}

	if event.SatelliteCount >= s.cfg.MinSatellites {
		score += 10
	}
	if event.GPSValid {
		score += 5
	}

	if event.SignalQuality != nil {
		switch {
		case *event.SignalQuality >= s.cfg.SignalGood:
			score += 10
		case *event.SignalQuality >= s.cfg.SignalFair:
			score += 5
		}
	}
	if event.Registration != nil && s.registered(*event.Registration) {
		score += 15
	}
	if event.SessionActive != nil && *event.SessionActive {
		score += 10
	}

	if event.UptimeSeconds != nil && prev.uptimeSeconds != nil {
		progressed := *event.UptimeSeconds - *prev.uptimeSeconds
		if progressed >= int64(s.cfg.UptimeProgress/time.Second) {
			score += 10
		}
	}
	if event.MessageSeq != nil && prev.messageSeq != nil {
		switch {
		case *event.MessageSeq > *prev.messageSeq:
			score += 5
		case *event.MessageSeq == *prev.messageSeq:
			score -= 10
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
