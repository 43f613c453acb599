package application

import (
	"sync"
	"time"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

type bufferSlot struct {
	record   telemetry.ClassifiedRecord
	storedAt time.Time
}

// TieredBuffer keeps at most one pending record per (tier, unit). A new
// arrival for a unit replaces the unflushed one, so only the latest state per
// unit ever reaches the store.
type TieredBuffer struct {
	mu    sync.Mutex
	slots map[telemetry.Priority]map[string]bufferSlot
	clock Clock
}

// TieredBufferOption configures the buffer.
type TieredBufferOption func(*TieredBuffer)

// WithBufferClock overrides the default clock.
func WithBufferClock(clock Clock) TieredBufferOption {
	return func(b *TieredBuffer) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewTieredBuffer constructs an empty buffer.
func NewTieredBuffer(opts ...TieredBufferOption) *TieredBuffer {
	buffer := &TieredBuffer{
		slots: map[telemetry.Priority]map[string]bufferSlot{
			telemetry.PriorityCritical: {},
			telemetry.PriorityWarning:  {},
			telemetry.PriorityNormal:   {},
		},
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(buffer)
	}
	return buffer
}

// Put upserts the record into its tier's slot for the unit.
func (b *TieredBuffer) Put(record telemetry.ClassifiedRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tier := b.slots[record.Priority]
	if tier == nil {
		tier = make(map[string]bufferSlot)
		b.slots[record.Priority] = tier
	}
	tier[record.Event.UnitID] = bufferSlot{record: record, storedAt: b.clock.Now()}
}

// Size returns the slot count for a tier.
func (b *TieredBuffer) Size(tier telemetry.Priority) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots[tier])
}

// Sizes returns the slot count of every tier.
func (b *TieredBuffer) Sizes() map[telemetry.Priority]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	sizes := make(map[telemetry.Priority]int, len(b.slots))
	for tier, units := range b.slots {
		sizes[tier] = len(units)
	}
	return sizes
}

// TakeBatch atomically removes and returns up to max records from a tier.
// Removal happens under the lock, so an arrival during a subsequent persist
// simply claims a fresh slot and is picked up by the next flush.
func (b *TieredBuffer) TakeBatch(tier telemetry.Priority, max int) []telemetry.ClassifiedRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	units := b.slots[tier]
	if len(units) == 0 || max <= 0 {
		return nil
	}
	batch := make([]telemetry.ClassifiedRecord, 0, max)
	for unitID, slot := range units {
		batch = append(batch, slot.record)
		delete(units, unitID)
		if len(batch) == max {
			break
		}
	}
	return batch
}

// Cleanup drops slots older than the retention window.
func (b *TieredBuffer) Cleanup(retention time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	removed := 0
	for _, units := range b.slots {
		for unitID, slot := range units {
			if now.Sub(slot.storedAt) > retention {
				delete(units, unitID)
				removed++
			}
		}
	}
	return removed
}
