package greenauth

import (
	"context"
	"errors"

	"github.com/mimigigabyte/greenauth/store"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Refresh fails closed: any verification problem forces a full re-login, a
// new token is never issued speculatively. On success both tokens of the
// pair are re-minted.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrValidation
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		mapped := mapTokenError(err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, "", "", mapped, nil)
		return nil, mapped
	}

	user, err := e.users.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshFailure, false, claims.UID, "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, user.ID, "", ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	result, err := e.issueResult(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, "", nil, nil)
	return result, nil
}
