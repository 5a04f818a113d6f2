package ratelimit

import (
	"sync"
	"time"
)

// Defaults for sensitive endpoints (login, password change).
const (
	DefaultMax    = 5
	DefaultWindow = 15 * time.Minute
)

// SlidingWindow bounds attempts per key within a trailing time window.
// State lives only in process memory; restarts clear it. This is a best-effort
// throttle, not durable abuse prevention. The keyed map is owned by the
// limiter instance and guarded by its own lock, so it can be shared across
// concurrent request handlers and swapped for a distributed store later.
type SlidingWindow struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	now      func() time.Time
	attempts map[string][]time.Time
}

// Option configures the limiter.
type Option func(*SlidingWindow)

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) Option {
	return func(l *SlidingWindow) {
		if fn != nil {
			l.now = fn
		}
	}
}

// New creates a limiter allowing max attempts per key within window.
func New(max int, window time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		max:      max,
		window:   window,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow prunes attempts older than the window for key and either records this
// attempt (true) or rejects it (false, with a retry-after hint). Rejected
// attempts are not recorded, so a blocked caller does not extend its own
// lockout. A non-positive window means corrupted configuration or clock skew;
// the limiter then fails safe by rejecting.
func (l *SlidingWindow) Allow(key string) (bool, time.Duration) {
	if l.window <= 0 || l.max <= 0 {
		return false, DefaultWindow
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		// Timestamps in the future mean the clock moved backwards; keep them
		// so the window stays closed rather than open.
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.max {
		l.attempts[key] = kept
		retry := kept[0].Add(l.window).Sub(now)
		if retry <= 0 {
			retry = time.Second
		}
		return false, retry
	}

	l.attempts[key] = append(kept, now)
	return true, 0
}

// Reset clears the window for a key.
func (l *SlidingWindow) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}
