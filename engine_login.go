package greenauth

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/mimigigabyte/greenauth/lockout"
	"github.com/mimigigabyte/greenauth/store"
)

// LoginWithPassword describes the loginwithpassword operation and its observable behavior.
//
// LoginWithPassword may return an error when input validation, dependency calls, or security checks fail.
// LoginWithPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The failure message never distinguishes "unknown subject" from "wrong
// password"; both surface ErrInvalidCredentials to resist enumeration.
func (e *Engine) LoginWithPassword(ctx context.Context, req PasswordLoginRequest) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	subject, ok := subjectKey(req.CountryCode, req.Phone, req.Email)
	if !ok || req.Password == "" {
		return nil, ErrValidation
	}

	user, err := e.findBySubject(ctx, req.CountryCode, req.Phone, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", subject, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, subject, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	now := time.Now().UTC()
	if err := e.checkLockout(ctx, user, now); err != nil {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, subject, err, nil)
		return nil, err
	}

	if user.PasswordHash == nil || !e.hasher.Verify(req.Password, *user.PasswordHash) {
		e.recordLoginFailure(ctx, user, subject, now)
		return nil, ErrInvalidCredentials
	}

	if err := e.users.ResetLoginState(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	e.maybeUpgradeHash(ctx, user, req.Password)

	result, err := e.issueResult(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, subject, nil, func() map[string]string {
		return map[string]string{"channel": "password"}
	})
	return result, nil
}

// checkLockout applies the pre-attempt lockout decision. An expired lock
// admits the attempt but leaves the failure counter alone, so counting
// resumes from the persisted value and the next failure re-trips the lock;
// only a successful login resets the counter. It also persists a lock that
// should already exist but was lost to a race.
func (e *Engine) checkLockout(ctx context.Context, user *store.User, now time.Time) error {
	var lockedUntil time.Time
	if user.LockedUntil != nil {
		lockedUntil = *user.LockedUntil
	}

	d := e.policy.Evaluate(user.FailedLoginAttempts, lockedUntil, now)
	switch d.State {
	case lockout.StateLocked:
		return ErrAccountLocked
	case lockout.StateShouldLock:
		if err := e.users.RecordLoginFailure(ctx, user.ID, &d.LockUntil); err != nil {
			log.Print("greenauth: persisting lockout: ", err)
		}
		return ErrAccountLocked
	default:
		if !lockedUntil.IsZero() {
			// Expired timestamp is dead weight; drop it without touching
			// the counter.
			if err := e.users.ClearLock(ctx, user.ID); err != nil {
				log.Print("greenauth: clearing expired lock: ", err)
			}
			user.LockedUntil = nil
		}
		return nil
	}
}

// recordLoginFailure persists one failed attempt and, when the new count
// crosses the threshold, the lock expiry in the same UPDATE.
func (e *Engine) recordLoginFailure(ctx context.Context, user *store.User, subject string, now time.Time) {
	failed := user.FailedLoginAttempts + 1
	d := e.policy.Evaluate(failed, time.Time{}, now)

	var lockUntil *time.Time
	if d.State == lockout.StateShouldLock {
		lockUntil = &d.LockUntil
	}
	if err := e.users.RecordLoginFailure(ctx, user.ID, lockUntil); err != nil {
		log.Print("greenauth: recording login failure: ", err)
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, subject, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"failed_attempts": strconv.Itoa(failed)}
	})

	if lockUntil != nil {
		e.metricInc(MetricLockoutTriggered)
		e.emitAudit(ctx, auditEventLoginLockoutTriggered, false, user.ID, subject, ErrAccountLocked, func() map[string]string {
			return map[string]string{"locked_until": lockUntil.Format(time.RFC3339)}
		})
	}
}

// maybeUpgradeHash transparently re-hashes at the configured cost after a
// successful verify. Best effort; login never fails because of it.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *store.User, plaintext string) {
	if !e.config.Password.UpgradeOnLogin || user.PasswordHash == nil {
		return
	}

	needs, err := e.hasher.NeedsRehash(*user.PasswordHash)
	if err != nil || !needs {
		return
	}

	digest, err := e.hasher.Hash(plaintext)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		log.Print("greenauth: upgrading password hash: ", err)
	}
}
