package greenauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mimigigabyte/greenauth/store"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Unlike the password login path, the duplicate check here does disclose
// existence; that matches the registration UX where "already registered" is
// the useful answer.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	subject, ok := subjectKey(req.CountryCode, req.Phone, req.Email)
	if !ok || req.Code == "" || req.Password == "" {
		return nil, ErrValidation
	}

	if err := e.checkDuplicate(ctx, req.CountryCode, req.Phone, req.Email); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", subject, err, nil)
		}
		return nil, err
	}

	if err := e.verifyCode(ctx, subject, PurposeRegister, req.Code); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", subject, err, nil)
		return nil, err
	}

	digest, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, ErrValidation
	}

	now := time.Now().UTC()
	user := &store.User{
		PasswordHash: &digest,
		Name:         strings.TrimSpace(req.Name),
		Role:         "user",
		IsActive:     true,
		LastLoginAt:  &now,
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		cc := strings.TrimSpace(req.CountryCode)
		user.Phone = &phone
		user.CountryCode = &cc
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		user.Email = &email
	}

	// Re-check and create inside one transaction so a racing registration
	// cannot leave partial rows or duplicates behind.
	err = e.users.Transaction(ctx, func(tx *store.UserStore) error {
		if err := e.subjectTaken(ctx, tx, req.CountryCode, req.Phone, req.Email); err != nil {
			return err
		}
		return tx.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) || errors.Is(err, store.ErrDuplicate) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", subject, ErrDuplicateAccount, nil)
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}

	result, err := e.issueResult(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, subject, nil, nil)
	return result, nil
}

// checkDuplicate consults the primary store and, when configured, the
// secondary identity system.
func (e *Engine) checkDuplicate(ctx context.Context, countryCode, phone, email string) error {
	if err := e.subjectTaken(ctx, e.users, countryCode, phone, email); err != nil {
		return err
	}

	if e.dupChecker != nil {
		exists, err := e.dupChecker.Exists(ctx, countryCode, phone, email)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateAccount
		}
	}
	return nil
}

func (e *Engine) subjectTaken(ctx context.Context, users *store.UserStore, countryCode, phone, email string) error {
	if strings.TrimSpace(phone) != "" {
		_, err := users.FindByPhone(ctx, strings.TrimSpace(countryCode), strings.TrimSpace(phone))
		switch {
		case err == nil:
			return ErrDuplicateAccount
		case errors.Is(err, store.ErrNotFound):
		default:
			return err
		}
	}
	if addr := strings.ToLower(strings.TrimSpace(email)); addr != "" {
		_, err := users.FindByEmail(ctx, addr)
		switch {
		case err == nil:
			return ErrDuplicateAccount
		case errors.Is(err, store.ErrNotFound):
		default:
			return err
		}
	}
	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A verified reset_password code replaces the stored hash and clears the
// lockout counters, so a user locked out of password login can recover.
func (e *Engine) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if e == nil {
		return ErrEngineNotReady
	}

	subject, ok := subjectKey(req.CountryCode, req.Phone, req.Email)
	if !ok || req.Code == "" || req.NewPassword == "" {
		return ErrValidation
	}

	user, err := e.findBySubject(ctx, req.CountryCode, req.Phone, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricPasswordResetFailure)
			e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", subject, ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return err
	}
	if !user.IsActive {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, user.ID, subject, ErrAccountDisabled, nil)
		return ErrAccountDisabled
	}

	if err := e.verifyCode(ctx, subject, PurposeResetPassword, req.Code); err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, user.ID, subject, err, nil)
		return err
	}

	digest, err := e.hasher.Hash(req.NewPassword)
	if err != nil {
		return ErrValidation
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetSuccess, true, user.ID, subject, nil, nil)
	return nil
}
