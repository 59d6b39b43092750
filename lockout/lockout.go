package lockout

import "time"

const (
	defaultMaxFailures  = 5
	defaultLockDuration = 30 * time.Minute
)

// State defines a public type used by greenauth APIs.
type State int

const (
	// StateUnlocked is an exported constant or variable used by the authentication engine.
	StateUnlocked State = iota
	// StateLocked is an exported constant or variable used by the authentication engine.
	StateLocked
	// StateShouldLock is an exported constant or variable used by the authentication engine.
	StateShouldLock
)

// String describes the string operation and its observable behavior.
func (s State) String() string {
	switch s {
	case StateUnlocked:
		return "unlocked"
	case StateLocked:
		return "locked"
	case StateShouldLock:
		return "should_lock"
	default:
		return "unknown"
	}
}

// Decision defines a public type used by greenauth APIs.
//
// Decision instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Decision struct {
	State State

	// Remaining is the time left on an active lock. Set only for StateLocked.
	Remaining time.Duration

	// LockUntil is the expiry the caller should persist. Set only for
	// StateShouldLock.
	LockUntil time.Time
}

// Policy defines a public type used by greenauth APIs.
//
// Policy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Policy struct {
	MaxFailures  int
	LockDuration time.Duration
}

// DefaultPolicy describes the defaultpolicy operation and its observable behavior.
//
// DefaultPolicy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultPolicy() Policy {
	return Policy{
		MaxFailures:  defaultMaxFailures,
		LockDuration: defaultLockDuration,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxFailures <= 0 {
		p.MaxFailures = defaultMaxFailures
	}
	if p.LockDuration <= 0 {
		p.LockDuration = defaultLockDuration
	}
	return p
}

// Evaluate describes the evaluate operation and its observable behavior.
//
// Evaluate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// failed is the count of consecutive failures already persisted, including
// the failure being processed when called from a failure path. lockedUntil is
// the persisted lock expiry, zero when no lock was ever set.
func (p Policy) Evaluate(failed int, lockedUntil time.Time, now time.Time) Decision {
	p = p.normalized()

	// An unexpired lock wins over everything else.
	if !lockedUntil.IsZero() && now.Before(lockedUntil) {
		return Decision{
			State:     StateLocked,
			Remaining: lockedUntil.Sub(now),
		}
	}

	// An expired lock has served its term: the account reads as unlocked
	// even when the counter sits at or above the threshold. Only a new
	// failure on top of the persisted counter re-trips the lock; expiry
	// itself never resets counting.
	if !lockedUntil.IsZero() {
		return Decision{State: StateUnlocked}
	}

	if failed >= p.MaxFailures {
		return Decision{
			State:     StateShouldLock,
			LockUntil: now.Add(p.LockDuration),
		}
	}

	return Decision{State: StateUnlocked}
}
