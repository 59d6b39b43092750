package greenauth

import (
	"context"
	"errors"
	"strings"

	"github.com/mimigigabyte/greenauth/gateway"
	"github.com/mimigigabyte/greenauth/lockout"
	"github.com/mimigigabyte/greenauth/oauth"
	"github.com/mimigigabyte/greenauth/password"
	"github.com/mimigigabyte/greenauth/store"
	"github.com/mimigigabyte/greenauth/token"
)

// Engine defines a public type used by greenauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config Config

	users  *store.UserStore
	codes  *store.CodeStore
	hasher *password.Hasher
	tokens *token.Manager
	policy lockout.Policy

	states      *oauth.StateStore
	oauthClient *oauth.Client

	sms        gateway.SMSSender
	email      gateway.EmailSender
	dupChecker DuplicateChecker

	audit   *auditDispatcher
	metrics *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Close drains the audit dispatcher. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Exactly one variant of req must be set; shared policy (lockout, disabled
// accounts, token issuance) applies identically on every channel.
func (e *Engine) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	set := 0
	if req.Password != nil {
		set++
	}
	if req.Code != nil {
		set++
	}
	if req.OAuth != nil {
		set++
	}
	if set != 1 {
		return nil, ErrValidation
	}

	switch {
	case req.Password != nil:
		return e.LoginWithPassword(ctx, *req.Password)
	case req.Code != nil:
		return e.LoginWithCode(ctx, *req.Code)
	default:
		return e.LoginWithOAuth(ctx, *req.OAuth)
	}
}

// VerifyAccess describes the verifyaccess operation and its observable behavior.
//
// VerifyAccess may return an error when input validation, dependency calls, or security checks fail.
// VerifyAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Verification is pure claim checking, no store access.
func (e *Engine) VerifyAccess(_ context.Context, accessToken string) (*token.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return claims, nil
}

// Deactivate describes the deactivate operation and its observable behavior.
//
// Deactivate may return an error when input validation, dependency calls, or security checks fail.
// Deactivate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Deactivation is a flag flip; the row is never hard-deleted. Outstanding
// tokens are not revoked, but every login and refresh path rejects a
// deactivated account.
func (e *Engine) Deactivate(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrValidation
	}

	if err := e.users.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	e.metricInc(MetricAccountDeactivated)
	e.emitAudit(ctx, auditEventAccountDeactivated, true, userID, "", nil, nil)
	return nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongType):
		return ErrTokenWrongType
	case errors.Is(err, token.ErrMalformed):
		return ErrTokenMalformed
	default:
		return err
	}
}

func userView(u *store.User) UserView {
	view := UserView{
		ID:          u.ID,
		Name:        u.Name,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
		IsActive:    u.IsActive,
		Metadata:    u.Metadata,
	}
	if u.Phone != nil {
		view.Phone = *u.Phone
	}
	if u.CountryCode != nil {
		view.CountryCode = *u.CountryCode
	}
	if u.Email != nil {
		view.Email = *u.Email
	}
	if u.AvatarURL != nil {
		view.AvatarURL = *u.AvatarURL
	}
	return view
}

func (e *Engine) issueResult(u *store.User) (*AuthResult, error) {
	access, refresh, err := e.tokens.IssuePair(u.ID, u.Role, u.Name)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:         userView(u),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// subjectKey builds the scoping key verification codes are stored under:
// "<countryCode>-<phone>" for SMS subjects, the lowercased address for email.
func subjectKey(countryCode, phone, email string) (string, bool) {
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)

	switch {
	case phone != "":
		countryCode = strings.TrimSpace(countryCode)
		if countryCode == "" {
			return "", false
		}
		return countryCode + "-" + phone, true
	case email != "":
		return strings.ToLower(email), true
	default:
		return "", false
	}
}

func (e *Engine) findBySubject(ctx context.Context, countryCode, phone, email string) (*store.User, error) {
	if strings.TrimSpace(phone) != "" {
		return e.users.FindByPhone(ctx, strings.TrimSpace(countryCode), strings.TrimSpace(phone))
	}
	return e.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
