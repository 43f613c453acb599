package application

import (
	"fmt"
	"testing"
	"time"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGuard(clock Clock) *DuplicateGuard {
	return NewDuplicateGuard(DefaultDuplicateGuardConfig(), WithDuplicateGuardClock(clock))
}

func TestDuplicateGuardPassesEventsWithoutCategory(t *testing.T) {
	guard := newTestGuard(&fakeClock{now: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)})
	check := guard.Check(validEvent())
	if check.Filtered || check.Category != "" {
		t.Fatalf("clean event must pass, got %+v", check)
	}
}

func TestDuplicateGuardSuppressesWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	guard := newTestGuard(clock)
	event := validEvent()
	event.ErrorText = "sensor malfunction detected"

	first := guard.Check(event)
	if first.Filtered {
		t.Fatalf("first occurrence must pass, got %+v", first)
	}
	if first.Category != telemetry.CategoryMalfunction {
		t.Fatalf("expected MALFUNCTION, got %s", first.Category)
	}

	clock.Advance(10 * time.Minute)
	second := guard.Check(event)
	if !second.Filtered || second.Reason != ReasonDuplicateError {
		t.Fatalf("expected duplicate_error, got %+v", second)
	}

	clock.Advance(51 * time.Minute)
	third := guard.Check(event)
	if third.Filtered {
		t.Fatalf("occurrence after window must pass, got %+v", third)
	}
}

func TestDuplicateGuardDailyCeiling(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 1, 0, 0, 0, time.UTC)}
	guard := newTestGuard(clock)
	event := validEvent()
	event.ErrorText = "load cell overload"

	limit := DefaultDuplicateGuardConfig().DailyLimit
	for i := 0; i < limit; i++ {
		if check := guard.Check(event); check.Filtered {
			t.Fatalf("occurrence %d should pass, got %+v", i+1, check)
		}
		clock.Advance(61 * time.Minute)
	}

	check := guard.Check(event)
	if !check.Filtered || check.Reason != ReasonDailyLimitExceeded {
		t.Fatalf("expected daily_limit_exceeded, got %+v", check)
	}
}

func TestDuplicateGuardConnectivityCategoriesGetHigherCeiling(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	cfg := DefaultDuplicateGuardConfig()
	cfg.Window = time.Minute
	guard := NewDuplicateGuard(cfg, WithDuplicateGuardClock(clock))
	event := validEvent()
	event.ErrorText = "connection lost to base station"

	passed := 0
	for i := 0; i < cfg.ConnectivityDailyLimit+3; i++ {
		if check := guard.Check(event); !check.Filtered {
			passed++
		}
		clock.Advance(2 * time.Minute)
	}
	if passed != cfg.ConnectivityDailyLimit {
		t.Fatalf("expected %d passes, got %d", cfg.ConnectivityDailyLimit, passed)
	}
}

func TestDuplicateGuardDailyCountResetsAcrossDayBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)}
	cfg := DefaultDuplicateGuardConfig()
	cfg.Window = time.Minute
	cfg.DailyLimit = 2
	guard := NewDuplicateGuard(cfg, WithDuplicateGuardClock(clock))
	event := validEvent()
	event.ErrorText = "hardware defect"

	for i := 0; i < cfg.DailyLimit; i++ {
		if check := guard.Check(event); check.Filtered {
			t.Fatalf("day-one occurrence %d should pass, got %+v", i+1, check)
		}
		clock.Advance(2 * time.Minute)
	}
	if check := guard.Check(event); !check.Filtered {
		t.Fatal("over-limit occurrence should be filtered")
	}

	clock.Advance(24 * time.Hour)
	if check := guard.Check(event); check.Filtered {
		t.Fatalf("new day must reset the ceiling, got %+v", check)
	}
}

func TestDuplicateGuardSynthesizesGPSInvalid(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	guard := newTestGuard(clock)
	event := validEvent()
	event.GPSValid = false

	check := guard.Check(event)
	if check.Category != telemetry.CategoryGPSInvalid {
		t.Fatalf("expected synthesized GPS_INVALID, got %q", check.Category)
	}
	if check.Filtered {
		t.Fatalf("first occurrence must pass, got %+v", check)
	}
}

func TestDuplicateGuardCleanupDropsStaleEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	guard := newTestGuard(clock)

	for i := 0; i < 3; i++ {
		event := validEvent()
		event.UnitID = fmt.Sprintf("unit-%d", i)
		event.ErrorText = "hardware defect"
		guard.Check(event)
	}
	if guard.TrackedCount() != 3 {
		t.Fatalf("expected 3 tracked entries, got %d", guard.TrackedCount())
	}

	clock.Advance(25 * time.Hour)
	guard.Cleanup(24 * time.Hour)
	if guard.TrackedCount() != 0 {
		t.Fatalf("expected cleanup to drop all entries, got %d", guard.TrackedCount())
	}
}

func TestRateLimiterResetHourShiftsDayBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 23, 30, 0, 0, time.UTC)}
	limiter := NewRateLimiter(2, WithRateLimiterClock(clock))

	limiter.Increment("CAT", "unit-1")
	limiter.Increment("CAT", "unit-1")

	// Midnight passes but the 02:00 reset hour has not; counts must survive.
	clock.Advance(time.Hour)
	if got := limiter.Count("CAT", "unit-1"); got != 2 {
		t.Fatalf("expected count 2 before reset hour, got %d", got)
	}

	clock.Advance(2 * time.Hour)
	if got := limiter.Count("CAT", "unit-1"); got != 0 {
		t.Fatalf("expected count 0 after reset hour, got %d", got)
	}
}
