package lockout

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluateUnlockedBelowThreshold(t *testing.T) {
	p := DefaultPolicy()

	for failed := 0; failed < p.MaxFailures; failed++ {
		d := p.Evaluate(failed, time.Time{}, testNow)
		if d.State != StateUnlocked {
			t.Fatalf("failed=%d: expected unlocked, got %v", failed, d.State)
		}
	}
}

func TestEvaluateShouldLockAtThreshold(t *testing.T) {
	p := DefaultPolicy()

	d := p.Evaluate(p.MaxFailures, time.Time{}, testNow)
	if d.State != StateShouldLock {
		t.Fatalf("expected should_lock, got %v", d.State)
	}
	if want := testNow.Add(p.LockDuration); !d.LockUntil.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, d.LockUntil)
	}
}

func TestEvaluateActiveLockWins(t *testing.T) {
	p := DefaultPolicy()
	until := testNow.Add(10 * time.Minute)

	d := p.Evaluate(p.MaxFailures+3, until, testNow)
	if d.State != StateLocked {
		t.Fatalf("expected locked, got %v", d.State)
	}
	if d.Remaining != 10*time.Minute {
		t.Fatalf("expected 10m remaining, got %v", d.Remaining)
	}
}

func TestEvaluateExpiredLockReadsUnlocked(t *testing.T) {
	p := DefaultPolicy()
	until := testNow.Add(-time.Second)

	// Even with the counter well past the threshold, an expired lock has
	// served its term; the pre-attempt answer is unlocked.
	d := p.Evaluate(p.MaxFailures+3, until, testNow)
	if d.State != StateUnlocked {
		t.Fatalf("expected unlocked after expiry, got %v", d.State)
	}
}

func TestEvaluateLockExpiryBoundary(t *testing.T) {
	p := DefaultPolicy()

	// A lock expiring exactly now is no longer active.
	d := p.Evaluate(p.MaxFailures, testNow, testNow)
	if d.State != StateUnlocked {
		t.Fatalf("expected unlocked at exact expiry, got %+v", d)
	}
}

func TestEvaluateCountingResumesAfterExpiry(t *testing.T) {
	p := DefaultPolicy()
	expired := testNow.Add(-time.Minute)

	// The persisted counter survives lock expiry: the attempt itself is
	// admitted, and the very next failure re-trips the lock.
	if d := p.Evaluate(p.MaxFailures, expired, testNow); d.State != StateUnlocked {
		t.Fatalf("expected unlocked pre-attempt, got %v", d.State)
	}

	d := p.Evaluate(p.MaxFailures+1, time.Time{}, testNow)
	if d.State != StateShouldLock {
		t.Fatalf("expected should_lock on the failure after expiry, got %v", d.State)
	}
	if want := testNow.Add(p.LockDuration); !d.LockUntil.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, d.LockUntil)
	}
}

func TestEvaluateZeroPolicyUsesDefaults(t *testing.T) {
	var p Policy

	d := p.Evaluate(defaultMaxFailures, time.Time{}, testNow)
	if d.State != StateShouldLock {
		t.Fatalf("expected should_lock under defaulted policy, got %v", d.State)
	}
	if want := testNow.Add(defaultLockDuration); !d.LockUntil.Equal(want) {
		t.Fatalf("expected default lock duration, got until %v", d.LockUntil)
	}
}
