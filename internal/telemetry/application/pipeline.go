package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"binwatch-cloud/internal/observability/metrics"
	telemetry "binwatch-cloud/internal/telemetry/domain"
)

// FlushConfig tunes buffering and flushing.
type FlushConfig struct {
	NormalInterval   time.Duration
	WarningInterval  time.Duration
	CriticalInterval time.Duration
	BufferSizeLimit  int
	BatchSize        int
	StoreTimeout     time.Duration
	CleanupInterval  time.Duration
	Retention        time.Duration
}

// DefaultFlushConfig returns the production flush settings.
func DefaultFlushConfig() FlushConfig {
	return FlushConfig{
		NormalInterval:   2 * time.Hour,
		WarningInterval:  30 * time.Minute,
		CriticalInterval: 5 * time.Minute,
		BufferSizeLimit:  1000,
		BatchSize:        100,
		StoreTimeout:     10 * time.Second,
		CleanupInterval:  24 * time.Hour,
		Retention:        24 * time.Hour,
	}
}

// Validate rejects intervals and sizes that would stall the pipeline.
func (c FlushConfig) Validate() error {
	if c.NormalInterval <= 0 || c.WarningInterval <= 0 || c.CriticalInterval <= 0 {
		return errors.New("pipeline: flush intervals must be positive")
	}
	if c.BufferSizeLimit <= 0 {
		return errors.New("pipeline: buffer size limit must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("pipeline: batch size must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("pipeline: store timeout must be positive")
	}
	if c.CleanupInterval <= 0 || c.Retention <= 0 {
		return errors.New("pipeline: cleanup interval and retention must be positive")
	}
	return nil
}

// Settings bundles all pipeline tunables.
type Settings struct {
	Validator  ValidatorConfig
	Classifier ClassifierConfig
	Duplicates DuplicateGuardConfig
	Flush      FlushConfig
}

// DefaultSettings returns production settings.
func DefaultSettings() Settings {
	return Settings{
		Validator:  DefaultValidatorConfig(),
		Classifier: DefaultClassifierConfig(),
		Duplicates: DefaultDuplicateGuardConfig(),
		Flush:      DefaultFlushConfig(),
	}
}

// Observer receives every event carrying a unit id, regardless of the
// classification outcome.
type Observer interface {
	Observe(event telemetry.TelemetryEvent, receivedAt time.Time)
}

// Outcome reports what happened to one ingested event.
type Outcome struct {
	Accepted bool               `json:"accepted"`
	Filtered bool               `json:"filtered"`
	Reason   string             `json:"reason,omitempty"`
	Priority telemetry.Priority `json:"priority,omitempty"`
	Saved    bool               `json:"saved"`
	Buffered bool               `json:"buffered"`
	RecordID string             `json:"recordId,omitempty"`
	Details  []string           `json:"details,omitempty"`
}

var allTiers = []telemetry.Priority{
	telemetry.PriorityCritical,
	telemetry.PriorityWarning,
	telemetry.PriorityNormal,
}

// Pipeline is the ingest service: validate, deduplicate, classify, then
// persist immediately or buffer for a timed flush. One instance owns all
// tracking state; construct it once and stop it on shutdown.
type Pipeline struct {
	validator  *Validator
	guard      *DuplicateGuard
	classifier *Classifier
	buffer     *TieredBuffer
	repo       telemetry.RecordRepository
	stats      *StatsTracker
	observer   Observer
	logger     *log.Logger
	clock      Clock

	cfgMu sync.RWMutex
	flush FlushConfig

	flushMu map[telemetry.Priority]*sync.Mutex
	kick    map[telemetry.Priority]chan struct{}
	reload  map[telemetry.Priority]chan time.Duration
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithClock overrides the default clock.
func WithClock(clock Clock) PipelineOption {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithObserver attaches a telemetry observer.
func WithObserver(observer Observer) PipelineOption {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline constructs the ingest pipeline. Invalid flush settings are
// fatal here rather than surfacing later inside a timer.
func NewPipeline(repo telemetry.RecordRepository, settings Settings, opts ...PipelineOption) (*Pipeline, error) {
	if repo == nil {
		return nil, errors.New("pipeline: nil record repository")
	}
	if err := settings.Flush.Validate(); err != nil {
		return nil, err
	}
	pipeline := &Pipeline{
		repo:    repo,
		stats:   NewStatsTracker(),
		logger:  log.Default(),
		clock:   systemClock{},
		flush:   settings.Flush,
		flushMu: make(map[telemetry.Priority]*sync.Mutex),
		kick:    make(map[telemetry.Priority]chan struct{}),
		reload:  make(map[telemetry.Priority]chan time.Duration),
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	pipeline.validator = NewValidator(settings.Validator)
	pipeline.classifier = NewClassifier(settings.Classifier)
	pipeline.guard = NewDuplicateGuard(settings.Duplicates, WithDuplicateGuardClock(pipeline.clock))
	pipeline.buffer = NewTieredBuffer(WithBufferClock(pipeline.clock))
	for _, tier := range allTiers {
		pipeline.flushMu[tier] = &sync.Mutex{}
		pipeline.kick[tier] = make(chan struct{}, 1)
		pipeline.reload[tier] = make(chan time.Duration, 1)
	}
	return pipeline, nil
}

// Stats returns a snapshot of counters and buffer occupancy.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot(p.buffer.Sizes())
}

// ProcessIncomingData runs one event through validate, dedup and classify,
// then persists or buffers it. Safe for concurrent callers.
func (p *Pipeline) ProcessIncomingData(ctx context.Context, event telemetry.TelemetryEvent) (Outcome, error) {
	p.stats.IncReceived()
	metrics.IncReceived()

	if p.observer != nil && event.UnitID != "" {
		p.observer.Observe(event, p.clock.Now())
	}

	p.cfgMu.RLock()
	validator, classifier := p.validator, p.classifier
	p.cfgMu.RUnlock()

	validation := validator.Validate(event)
	if !validation.IsValid {
		p.stats.IncFiltered()
		metrics.IncFiltered(ReasonValidationFailed)
		return Outcome{Reason: ReasonValidationFailed, Details: validation.Errors}, nil
	}

	check := p.guard.Check(event)
	if check.Filtered {
		p.stats.IncFiltered()
		metrics.IncFiltered(check.Reason)
		return Outcome{Filtered: true, Reason: check.Reason}, nil
	}

	classification := classifier.Classify(event, validation, check.Category)
	record := telemetry.ClassifiedRecord{
		Event:    event,
		Priority: classification.Priority,
		Status:   telemetry.StatusForPriority(classification.Priority),
		Category: check.Category,
		Reasons:  classification.Reasons,
	}

	outcome := Outcome{
		Accepted: true,
		Priority: classification.Priority,
		Details:  classification.Reasons,
	}

	if classification.SaveImmediately {
		id, err := p.persist(ctx, record)
		if err != nil {
			p.logger.Printf("pipeline: critical persist failed: unit=%s err=%v", event.UnitID, err)
			metrics.IncPersistError(string(record.Priority))
			return outcome, fmt.Errorf("%w: %v", telemetry.ErrPersistence, err)
		}
		p.stats.IncSaved()
		p.stats.IncCriticalSaved()
		metrics.IncSaved(string(record.Priority))
		outcome.Saved = true
		outcome.RecordID = id
		return outcome, nil
	}

	p.buffer.Put(record)
	outcome.Buffered = true
	size := p.buffer.Size(record.Priority)
	metrics.SetBufferOccupancy(string(record.Priority), size)
	if size > p.flushConfig().BufferSizeLimit {
		p.kickFlush(record.Priority)
	}
	return outcome, nil
}

func (p *Pipeline) flushConfig() FlushConfig {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	return p.flush
}

func (p *Pipeline) kickFlush(tier telemetry.Priority) {
	select {
	case p.kick[tier] <- struct{}{}:
	default:
	}
}

func (p *Pipeline) persist(ctx context.Context, record telemetry.ClassifiedRecord) (string, error) {
	timeout := p.flushConfig().StoreTimeout
	storeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.repo.Insert(storeCtx, record)
}

// FlushTier drains up to one batch from a tier. A per-tier mutex keeps the
// timer-driven and overflow-driven paths from interleaving.
func (p *Pipeline) FlushTier(ctx context.Context, tier telemetry.Priority) (flushed int, failed int) {
	mu := p.flushMu[tier]
	if mu == nil {
		return 0, 0
	}
	mu.Lock()
	defer mu.Unlock()

	cfg := p.flushConfig()
	batch := p.buffer.TakeBatch(tier, cfg.BatchSize)
	if len(batch) == 0 {
		return 0, 0
	}
	started := p.clock.Now()
	for _, record := range batch {
		if _, err := p.persist(ctx, record); err != nil {
			failed++
			p.logger.Printf("pipeline: flush persist failed: tier=%s unit=%s err=%v", tier, record.Event.UnitID, err)
			metrics.IncPersistError(string(tier))
			continue
		}
		flushed++
		p.stats.IncSaved()
		metrics.IncSaved(string(tier))
	}
	metrics.SetBufferOccupancy(string(tier), p.buffer.Size(tier))
	metrics.ObserveFlush(string(tier), p.clock.Now().Sub(started).Seconds(), failed == 0)
	return flushed, failed
}

// ForceFlush drains a tier completely.
func (p *Pipeline) ForceFlush(ctx context.Context, tier telemetry.Priority) (flushed int, failed int) {
	for {
		f, e := p.FlushTier(ctx, tier)
		flushed += f
		failed += e
		if p.buffer.Size(tier) == 0 || f+e == 0 {
			return flushed, failed
		}
	}
}

// Start launches the per-tier flush loops and the cleanup sweep. The loops
// run until ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	for _, tier := range allTiers {
		go p.flushLoop(ctx, tier)
	}
	go p.cleanupLoop(ctx)
}

func (p *Pipeline) intervalFor(tier telemetry.Priority) time.Duration {
	cfg := p.flushConfig()
	switch tier {
	case telemetry.PriorityCritical:
		return cfg.CriticalInterval
	case telemetry.PriorityWarning:
		return cfg.WarningInterval
	default:
		return cfg.NormalInterval
	}
}

func (p *Pipeline) flushLoop(ctx context.Context, tier telemetry.Priority) {
	ticker := time.NewTicker(p.intervalFor(tier))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.FlushTier(ctx, tier)
		case <-p.kick[tier]:
			p.FlushTier(ctx, tier)
		case interval := <-p.reload[tier]:
			ticker.Reset(interval)
			p.logger.Printf("pipeline: %s flush interval now %s", tier, interval)
		}
	}
}

func (p *Pipeline) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(p.flushConfig().CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cleanup()
		}
	}
}

// Cleanup sweeps stale duplicate-tracker entries and buffer slots.
func (p *Pipeline) Cleanup() {
	retention := p.flushConfig().Retention
	p.guard.Cleanup(retention)
	removed := p.buffer.Cleanup(retention)
	for _, tier := range allTiers {
		metrics.SetBufferOccupancy(string(tier), p.buffer.Size(tier))
	}
	if removed > 0 {
		p.logger.Printf("pipeline: cleanup removed %d stale buffer slots", removed)
	}
}

// ApplyFlushConfig swaps in new flush settings; only timers whose interval
// changed are reset.
func (p *Pipeline) ApplyFlushConfig(cfg FlushConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.cfgMu.Lock()
	previous := p.flush
	p.flush = cfg
	p.cfgMu.Unlock()

	changed := map[telemetry.Priority][2]time.Duration{
		telemetry.PriorityCritical: {previous.CriticalInterval, cfg.CriticalInterval},
		telemetry.PriorityWarning:  {previous.WarningInterval, cfg.WarningInterval},
		telemetry.PriorityNormal:   {previous.NormalInterval, cfg.NormalInterval},
	}
	for tier, pair := range changed {
		if pair[0] == pair[1] {
			continue
		}
		select {
		case p.reload[tier] <- pair[1]:
		default:
		}
	}
	return nil
}

// ApplySettings swaps in a full set of pipeline settings. Validation,
// classification and suppression limits take effect for the next event; the
// duplicate tracker and daily counters keep their state. Flush timers whose
// interval changed are reset.
func (p *Pipeline) ApplySettings(settings Settings) error {
	if err := settings.Flush.Validate(); err != nil {
		return err
	}
	p.cfgMu.Lock()
	p.validator = NewValidator(settings.Validator)
	p.classifier = NewClassifier(settings.Classifier)
	p.cfgMu.Unlock()
	p.guard.ApplyConfig(settings.Duplicates)
	return p.ApplyFlushConfig(settings.Flush)
}

// Shutdown force-flushes every tier. Call after cancelling the Start ctx.
func (p *Pipeline) Shutdown(ctx context.Context) {
	for _, tier := range allTiers {
		flushed, failed := p.ForceFlush(ctx, tier)
		if flushed+failed > 0 {
			p.logger.Printf("pipeline: shutdown flush tier=%s flushed=%d failed=%d", tier, flushed, failed)
		}
	}
}
