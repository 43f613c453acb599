package application

import (
	"sync"
	"time"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// Filter reason codes returned to ingest callers.
const (
	ReasonValidationFailed   = "validation_failed"
	ReasonDuplicateError     = "duplicate_error"
	ReasonDailyLimitExceeded = "daily_limit_exceeded"
)

// DuplicateGuardConfig tunes suppression of repeated error reports.
type DuplicateGuardConfig struct {
	Window                 time.Duration
	DailyLimit             int
	ConnectivityDailyLimit int
	ResetHour              int
	MinSatellites          int
}

// DefaultDuplicateGuardConfig returns production suppression settings.
func DefaultDuplicateGuardConfig() DuplicateGuardConfig {
	return DuplicateGuardConfig{
		Window:                 time.Hour,
		DailyLimit:             5,
		ConnectivityDailyLimit: 20,
		ResetHour:              0,
		MinSatellites:          3,
	}
}

type trackerKey struct {
	unitID   string
	category telemetry.ErrorCategory
}

type trackerEntry struct {
	lastSeen time.Time
	count    int
}

// DuplicateCheck is the outcome of a suppression decision.
type DuplicateCheck struct {
	Category telemetry.ErrorCategory
	Filtered bool
	Reason   string
}

// DuplicateGuard suppresses repeated error categories per unit: once within a
// sliding window, and beyond a per-category daily ceiling. Connectivity-style
// categories get a larger ceiling since outages legitimately repeat.
type DuplicateGuard struct {
	mu      sync.Mutex
	entries map[trackerKey]*trackerEntry
	limiter *RateLimiter
	cfg     DuplicateGuardConfig
	clock   Clock
}

// DuplicateGuardOption configures the guard.
type DuplicateGuardOption func(*DuplicateGuard)

// WithDuplicateGuardClock overrides the default clock.
func WithDuplicateGuardClock(clock Clock) DuplicateGuardOption {
	return func(g *DuplicateGuard) {
		if clock != nil {
			g.clock = clock
		}
	}
}

func (c DuplicateGuardConfig) withDefaults() DuplicateGuardConfig {
	defaults := DefaultDuplicateGuardConfig()
	if c.Window <= 0 {
		c.Window = defaults.Window
	}
	if c.DailyLimit <= 0 {
		c.DailyLimit = defaults.DailyLimit
	}
	if c.ConnectivityDailyLimit <= 0 {
		c.ConnectivityDailyLimit = defaults.ConnectivityDailyLimit
	}
	if c.MinSatellites <= 0 {
		c.MinSatellites = defaults.MinSatellites
	}
	return c
}

// NewDuplicateGuard constructs a guard.
func NewDuplicateGuard(cfg DuplicateGuardConfig, opts ...DuplicateGuardOption) *DuplicateGuard {
	guard := &DuplicateGuard{
		entries: make(map[trackerKey]*trackerEntry),
		cfg:     cfg.withDefaults(),
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(guard)
	}
	guard.limiter = NewRateLimiter(cfg.ResetHour, WithRateLimiterClock(guard.clock))
	return guard
}

// ApplyConfig swaps the suppression settings. Tracked entries and today's
// counters survive the swap; only decisions made after it see the new values.
func (g *DuplicateGuard) ApplyConfig(cfg DuplicateGuardConfig) {
	cfg = cfg.withDefaults()
	g.mu.Lock()
	g.cfg = cfg
	g.mu.Unlock()
	g.limiter.SetResetHour(cfg.ResetHour)
}

// Check derives the event's error category and decides whether this
// occurrence must be suppressed. Events with no category are never filtered.
// Suppressed occurrences do not refresh the tracker, so a persistent error
// resurfaces once per window.
func (g *DuplicateGuard) Check(event telemetry.TelemetryEvent) DuplicateCheck {
	g.mu.Lock()
	defer g.mu.Unlock()

	category, ok := telemetry.CategorizeErrorText(event.ErrorText)
	if !ok {
		if !event.GPSUnreliable(g.cfg.MinSatellites) {
			return DuplicateCheck{}
		}
		category = telemetry.CategoryGPSInvalid
	}

	now := g.clock.Now()
	key := trackerKey{unitID: event.UnitID, category: category}

	entry, found := g.entries[key]
	if found && now.Sub(entry.lastSeen) < g.cfg.Window {
		return DuplicateCheck{Category: category, Filtered: true, Reason: ReasonDuplicateError}
	}

	limit := g.cfg.DailyLimit
	if telemetry.ConnectivityCategory(category) {
		limit = g.cfg.ConnectivityDailyLimit
	}
	if g.limiter.Count(string(category), event.UnitID) >= limit {
		return DuplicateCheck{Category: category, Filtered: true, Reason: ReasonDailyLimitExceeded}
	}

	g.limiter.Increment(string(category), event.UnitID)
	if found {
		entry.lastSeen = now
		entry.count++
	} else {
		g.entries[key] = &trackerEntry{lastSeen: now, count: 1}
	}
	return DuplicateCheck{Category: category}
}

// Cleanup removes tracker entries not seen within the retention window and
// rate counters from previous days.
func (g *DuplicateGuard) Cleanup(retention time.Duration) {
	if g == nil {
		return
	}
	now := g.clock.Now()
	g.mu.Lock()
	for key, entry := range g.entries {
		if now.Sub(entry.lastSeen) > retention {
			delete(g.entries, key)
		}
	}
	g.mu.Unlock()
	g.limiter.Cleanup()
}

// TrackedCount returns the number of live tracker entries.
func (g *DuplicateGuard) TrackedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
