package greenauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mimigigabyte/greenauth/internal"
	"github.com/mimigigabyte/greenauth/store"
)

// SendCode describes the sendcode operation and its observable behavior.
//
// SendCode may return an error when input validation, dependency calls, or security checks fail.
// SendCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The code is persisted before delivery is attempted, so a gateway failure
// wastes the code but never rolls it back; the caller sees ErrDeliveryFailed
// and may simply request another after the cooldown.
func (e *Engine) SendCode(ctx context.Context, req SendCodeRequest) error {
	if e == nil {
		return ErrEngineNotReady
	}

	subject, ok := subjectKey(req.CountryCode, req.Phone, req.Email)
	if !ok || !req.Purpose.valid() {
		return ErrValidation
	}

	now := time.Now().UTC()
	hot, err := e.codes.IssuedWithin(ctx, subject, string(req.Purpose), e.config.Code.Cooldown, now)
	if err != nil {
		return err
	}
	if hot {
		e.metricInc(MetricCodeRateLimited)
		e.emitAudit(ctx, auditEventCodeRateLimited, false, "", subject, ErrCodeRateLimited, nil)
		return ErrCodeRateLimited
	}

	code, err := internal.NewCode(e.config.Code.Digits)
	if err != nil {
		return err
	}

	record := &store.VerificationCode{
		Subject:   subject,
		Purpose:   string(req.Purpose),
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.Code.TTL),
	}
	if err := e.codes.Insert(ctx, record); err != nil {
		return err
	}

	e.metricInc(MetricCodeIssued)
	e.emitAudit(ctx, auditEventCodeIssued, true, "", subject, nil, func() map[string]string {
		return map[string]string{"purpose": string(req.Purpose)}
	})

	if err := e.deliverCode(ctx, req, code); err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventCodeDeliveryFailure, false, "", subject, ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func (e *Engine) deliverCode(ctx context.Context, req SendCodeRequest, code string) error {
	if strings.TrimSpace(req.Phone) != "" {
		if e.sms == nil {
			return errors.New("no sms gateway configured")
		}
		message := fmt.Sprintf(e.config.Code.SMSTemplate, code)
		return e.sms.SendSMS(ctx, strings.TrimSpace(req.CountryCode), strings.TrimSpace(req.Phone), message)
	}

	if e.email == nil {
		return errors.New("no email gateway configured")
	}
	body := fmt.Sprintf(e.config.Code.EmailTemplate, code)
	return e.email.SendEmail(ctx, strings.TrimSpace(req.Email), e.config.Code.EmailSubject, body)
}

// verifyCode consumes the newest eligible record for (subject, purpose).
// A wrong candidate burns one attempt; the record dies permanently at the
// attempt cap or on first successful match.
func (e *Engine) verifyCode(ctx context.Context, subject string, purpose Purpose, candidate string) error {
	now := time.Now().UTC()

	record, err := e.codes.LatestEligible(ctx, subject, string(purpose), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricCodeVerifyFailure)
			e.emitAudit(ctx, auditEventCodeVerifyFailure, false, "", subject, ErrCodeNotFound, nil)
			return ErrCodeNotFound
		}
		return err
	}

	if record.Attempts >= e.config.Code.MaxAttempts {
		e.metricInc(MetricCodeExhausted)
		e.emitAudit(ctx, auditEventCodeVerifyFailure, false, "", subject, ErrCodeExhausted, nil)
		return ErrCodeExhausted
	}

	if candidate != record.Code {
		if err := e.codes.IncrementAttempts(ctx, record.ID); err != nil {
			if errors.Is(err, store.ErrStale) {
				return ErrCodeNotFound
			}
			return err
		}

		remaining := e.config.Code.MaxAttempts - record.Attempts - 1
		e.metricInc(MetricCodeVerifyFailure)
		if remaining <= 0 {
			e.metricInc(MetricCodeExhausted)
			e.emitAudit(ctx, auditEventCodeVerifyFailure, false, "", subject, ErrCodeExhausted, nil)
			return ErrCodeExhausted
		}
		e.emitAudit(ctx, auditEventCodeVerifyFailure, false, "", subject, ErrCodeMismatch, nil)
		return fmt.Errorf("%w: %d attempts remaining", ErrCodeMismatch, remaining)
	}

	if err := e.codes.MarkUsed(ctx, record.ID); err != nil {
		if errors.Is(err, store.ErrStale) {
			// Lost the consume race; for the caller the code no longer exists.
			return ErrCodeNotFound
		}
		return err
	}

	e.metricInc(MetricCodeVerifySuccess)
	return nil
}

// LoginWithCode describes the loginwithcode operation and its observable behavior.
//
// LoginWithCode may return an error when input validation, dependency calls, or security checks fail.
// LoginWithCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A verified code authenticates an existing user or creates one on the fly,
// so first-time code login doubles as lightweight registration.
func (e *Engine) LoginWithCode(ctx context.Context, req CodeLoginRequest) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	subject, ok := subjectKey(req.CountryCode, req.Phone, req.Email)
	if !ok || req.Code == "" {
		return nil, ErrValidation
	}

	now := time.Now().UTC()

	user, err := e.findBySubject(ctx, req.CountryCode, req.Phone, req.Email)
	switch {
	case err == nil:
		if !user.IsActive {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, subject, ErrAccountDisabled, nil)
			return nil, ErrAccountDisabled
		}
		if err := e.checkLockout(ctx, user, now); err != nil {
			e.metricInc(MetricLoginLocked)
			e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, subject, err, nil)
			return nil, err
		}
	case errors.Is(err, store.ErrNotFound):
		user = nil
	default:
		return nil, err
	}

	if err := e.verifyCode(ctx, subject, PurposeLogin, req.Code); err != nil {
		return nil, err
	}

	if user == nil {
		user = &store.User{Role: "user", IsActive: true}
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			cc := strings.TrimSpace(req.CountryCode)
			user.Phone = &phone
			user.CountryCode = &cc
		} else {
			email := strings.ToLower(strings.TrimSpace(req.Email))
			user.Email = &email
		}
		if err := e.users.Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				// Concurrent first login for the same subject; use the winner.
				user, err = e.findBySubject(ctx, req.CountryCode, req.Phone, req.Email)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
	}

	if err := e.users.ResetLoginState(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	result, err := e.issueResult(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, subject, nil, func() map[string]string {
		return map[string]string{"channel": "code"}
	})
	return result, nil
}
