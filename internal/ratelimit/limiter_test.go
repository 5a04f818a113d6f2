package ratelimit

import (
	"testing"
	"time"
)

func TestAllowFiveThenReject(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New(5, 15*time.Minute, WithClock(func() time.Time { return now }))

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("user-1")
		if !ok {
			t.Fatalf("attempt %d unexpectedly rejected", i+1)
		}
		now = now.Add(time.Second)
	}

	ok, retry := l.Allow("user-1")
	if ok {
		t.Fatal("sixth attempt should be rejected")
	}
	if retry <= 0 {
		t.Fatalf("expected positive retry hint, got %v", retry)
	}
}

func TestRejectedAttemptNotRecorded(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New(2, time.Minute, WithClock(func() time.Time { return now }))

	l.Allow("k")
	l.Allow("k")
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow("k"); ok {
			t.Fatal("expected rejection while window is full")
		}
	}
	// Rejections must not extend the lockout: once the two recorded attempts
	// age out, the key is admitted again.
	now = now.Add(61 * time.Second)
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("expected attempt to pass after window elapsed")
	}
}

func TestWindowRecovery(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New(5, 15*time.Minute, WithClock(func() time.Time { return now }))

	for i := 0; i < 5; i++ {
		l.Allow("ip:10.0.0.1")
	}
	if ok, _ := l.Allow("ip:10.0.0.1"); ok {
		t.Fatal("expected rejection inside window")
	}
	now = now.Add(15*time.Minute + time.Second)
	if ok, _ := l.Allow("ip:10.0.0.1"); !ok {
		t.Fatal("expected admission after window elapsed from first attempt")
	}
}

func TestKeysIsolated(t *testing.T) {
	l := New(1, time.Minute)
	if ok, _ := l.Allow("a"); !ok {
		t.Fatal("first key should pass")
	}
	if ok, _ := l.Allow("b"); !ok {
		t.Fatal("second key should be unaffected by first")
	}
	if ok, _ := l.Allow("a"); ok {
		t.Fatal("first key should now be limited")
	}
}

func TestNonPositiveWindowFailsSafe(t *testing.T) {
	l := New(5, 0)
	if ok, _ := l.Allow("k"); ok {
		t.Fatal("zero window must reject, not admit unbounded attempts")
	}
}

func TestClockSkewKeepsWindowClosed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New(2, time.Minute, WithClock(func() time.Time { return now }))

	l.Allow("k")
	l.Allow("k")
	// Clock moves backwards: recorded attempts are now in the future. They
	// must still count against the window.
	now = now.Add(-30 * time.Minute)
	if ok, _ := l.Allow("k"); ok {
		t.Fatal("expected rejection when clock moved backwards")
	}
}

func TestReset(t *testing.T) {
	l := New(1, time.Minute)
	l.Allow("k")
	l.Reset("k")
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("expected admission after reset")
	}
}
