package application

import (
	"sync"
	"time"
)

// RateLimiter counts occurrences per (category, subject) against a calendar
// day. The day boundary is shifted by a configurable reset hour so counters
// roll over at a quiet time instead of midnight UTC.
type RateLimiter struct {
	mu        sync.Mutex
	counts    map[string]int
	resetHour int
	clock     Clock
}

// RateLimiterOption configures the limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterClock overrides the default clock.
func WithRateLimiterClock(clock Clock) RateLimiterOption {
	return func(l *RateLimiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewRateLimiter constructs a limiter with the given daily reset hour.
func NewRateLimiter(resetHour int, opts ...RateLimiterOption) *RateLimiter {
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	limiter := &RateLimiter{
		counts:    make(map[string]int),
		resetHour: resetHour,
		clock:     systemClock{},
	}
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter
}

// SetResetHour changes the daily rollover hour. Counters keyed under the old
// marker simply age out on the next cleanup.
func (l *RateLimiter) SetResetHour(hour int) {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	l.mu.Lock()
	l.resetHour = hour
	l.mu.Unlock()
}

func (l *RateLimiter) dayMarker(now time.Time) string {
	return now.UTC().Add(-time.Duration(l.resetHour) * time.Hour).Format("2006-01-02")
}

func (l *RateLimiter) key(category, subject string, now time.Time) string {
	return category + "|" + subject + "|" + l.dayMarker(now)
}

// Count returns today's count for (category, subject).
func (l *RateLimiter) Count(category, subject string) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[l.key(category, subject, l.clock.Now())]
}

// Increment bumps today's count and returns the new value.
func (l *RateLimiter) Increment(category, subject string) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.key(category, subject, l.clock.Now())
	l.counts[key]++
	return l.counts[key]
}

// Cleanup drops counters for days other than today.
func (l *RateLimiter) Cleanup() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	marker := l.dayMarker(l.clock.Now())
	suffix := "|" + marker
	for key := range l.counts {
		if len(key) < len(suffix) || key[len(key)-len(suffix):] != suffix {
			delete(l.counts, key)
		}
	}
}
