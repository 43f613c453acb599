package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	connectivity "binwatch-cloud/internal/connectivity/domain"
	"binwatch-cloud/internal/connectivity/notify"
	"binwatch-cloud/internal/observability/metrics"
	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// MonitorConfig tunes the health-check loop.
type MonitorConfig struct {
	CheckInterval time.Duration
	Scorer        ScorerConfig
}

// DefaultMonitorConfig returns the production monitor settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CheckInterval: 2 * time.Minute,
		Scorer:        DefaultScorerConfig(),
	}
}

type unitState struct {
	health connectivity.UnitHealth
	sample Sample
	prev   history
}

// Monitor derives a smoothed connection state per unit from the telemetry
// stream and alerts when a unit goes offline, at most once per unit per day.
type Monitor struct {
	mu       sync.Mutex
	units    map[string]*unitState
	notified map[string]string

	scorer   *Scorer
	interval time.Duration
	notifier notify.Notifier
	clock    Clock
	logger   *log.Logger
	reload   chan time.Duration
}

// MonitorOption configures the monitor.
type MonitorOption func(*Monitor)

// WithMonitorClock overrides the default clock.
func WithMonitorClock(clock Clock) MonitorOption {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithMonitorLogger overrides the default logger.
func WithMonitorLogger(logger *log.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor constructs a connection health monitor.
func NewMonitor(cfg MonitorConfig, notifier notify.Notifier, opts ...MonitorOption) (*Monitor, error) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultMonitorConfig().CheckInterval
	}
	if cfg.CheckInterval < time.Second {
		return nil, errors.New("connectivity: check interval too small")
	}
	monitor := &Monitor{
		units:    make(map[string]*unitState),
		notified: make(map[string]string),
		scorer:   NewScorer(cfg.Scorer),
		interval: cfg.CheckInterval,
		notifier: notifier,
		clock:    systemClock{},
		logger:   log.Default(),
		reload:   make(chan time.Duration, 1),
	}
	for _, opt := range opts {
		opt(monitor)
	}
	return monitor, nil
}

// Observe records the latest telemetry for a unit. Called by the ingest
// pipeline for every event carrying a unit id, independent of classification.
func (m *Monitor) Observe(event telemetry.TelemetryEvent, receivedAt time.Time) {
	if event.UnitID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.units[event.UnitID]
	if !ok {
		state = &unitState{
			health: connectivity.UnitHealth{
				UnitID: event.UnitID,
				Status: connectivity.StatusOnline,
			},
		}
		m.units[event.UnitID] = state
	}
	state.sample = Sample{Event: event, ReceivedAt: receivedAt}
	state.health.LastSeen = receivedAt
}

// Tick runs one health check over all known units.
func (m *Monitor) Tick(ctx context.Context, now time.Time) {
	type offlineAlert struct {
		unitID  string
		message string
	}
	var alerts []offlineAlert
	counts := map[connectivity.Status]int{}

	m.mu.Lock()
	today := now.UTC().Format("2006-01-02")
	for unitID, day := range m.notified {
		if day != today {
			delete(m.notified, unitID)
		}
	}
	for unitID, state := range m.units {
		score := m.scorer.Score(now, state.sample, state.prev)
		wentOffline := connectivity.Advance(&state.health, score)
		state.health.CheckedAt = now
		state.prev = history{
			uptimeSeconds: state.sample.Event.UptimeSeconds,
			messageSeq:    state.sample.Event.MessageSeq,
		}
		counts[state.health.Status]++
		if wentOffline {
			metrics.IncOfflineTransition()
			if m.notified[unitID] != today {
				m.notified[unitID] = today
				alerts = append(alerts, offlineAlert{
					unitID:  unitID,
					message: m.offlineReason(now, state),
				})
			}
		}
	}
	m.mu.Unlock()

	for _, status := range []connectivity.Status{connectivity.StatusOnline, connectivity.StatusSuspected, connectivity.StatusOffline} {
		metrics.SetConnectionState(string(status), counts[status])
	}

	for _, alert := range alerts {
		m.logger.Printf("connectivity: unit went offline: unit=%s", alert.unitID)
		m.dispatch(ctx, notify.Alert{
			UnitID:   alert.unitID,
			Message:  alert.message,
			Severity: notify.SeverityCritical,
			At:       now,
		})
	}
}

// dispatch sends the alert without ever blocking the tick loop.
func (m *Monitor) dispatch(ctx context.Context, alert notify.Alert) {
	if m.notifier == nil {
		return
	}
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := m.notifier.Notify(notifyCtx, alert); err != nil {
			m.logger.Printf("connectivity: notify failed: unit=%s err=%v", alert.UnitID, err)
			metrics.IncNotify(false)
			return
		}
		metrics.IncNotify(true)
	}()
}

func (m *Monitor) offlineReason(now time.Time, state *unitState) string {
	var parts []string
	age := now.Sub(state.sample.ReceivedAt).Round(time.Second)
	parts = append(parts, fmt.Sprintf("last heartbeat %s ago", age))
	event := state.sample.Event
	if event.SignalQuality != nil {
		parts = append(parts, fmt.Sprintf("signal quality %d", *event.SignalQuality))
	}
	if event.Registration != nil {
		parts = append(parts, fmt.Sprintf("registration %s", *event.Registration))
	}
	if event.SessionActive != nil {
		parts = append(parts, fmt.Sprintf("data session active %t", *event.SessionActive))
	}
	parts = append(parts, fmt.Sprintf("satellites %d", event.SatelliteCount))
	parts = append(parts, fmt.Sprintf("score %d", state.health.Score))
	return "unit offline: " + strings.Join(parts, ", ")
}

// Health returns the current health of one unit.
func (m *Monitor) Health(unitID string) (connectivity.UnitHealth, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.units[unitID]
	if !ok {
		return connectivity.UnitHealth{}, false
	}
	return state.health, true
}

// Snapshot returns the health of all known units, ordered by unit id.
func (m *Monitor) Snapshot() []connectivity.UnitHealth {
	m.mu.Lock()
	healths := make([]connectivity.UnitHealth, 0, len(m.units))
	for _, state := range m.units {
		healths = append(healths, state.health)
	}
	m.mu.Unlock()
	sort.Slice(healths, func(i, j int) bool { return healths[i].UnitID < healths[j].UnitID })
	return healths
}

// Start runs the health-check loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		m.mu.Lock()
		interval := m.interval
		m.mu.Unlock()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Tick(ctx, m.clock.Now().UTC())
			case interval := <-m.reload:
				ticker.Reset(interval)
				m.logger.Printf("connectivity: check interval now %s", interval)
			}
		}
	}()
}

// ApplyScorerConfig swaps the scoring settings used by subsequent ticks.
func (m *Monitor) ApplyScorerConfig(cfg ScorerConfig) {
	m.mu.Lock()
	m.scorer = NewScorer(cfg)
	m.mu.Unlock()
}

// ApplyCheckInterval swaps the health-check interval; the running timer is
// reset only when the value actually changed.
func (m *Monitor) ApplyCheckInterval(interval time.Duration) error {
	if interval < time.Second {
		return errors.New("connectivity: check interval too small")
	}
	m.mu.Lock()
	changed := interval != m.interval
	m.interval = interval
	m.mu.Unlock()
	if !changed {
		return nil
	}
	select {
	case m.reload <- interval:
	default:
	}
	return nil
}
