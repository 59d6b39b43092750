package greenauth

import (
	"context"
	"errors"
	"time"

	"github.com/mimigigabyte/greenauth/oauth"
)

// AuthorizationURL describes the authorizationurl operation and its observable behavior.
//
// AuthorizationURL may return an error when input validation, dependency calls, or security checks fail.
// AuthorizationURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The returned URL embeds a freshly issued anti-forgery state value bound to
// redirectURI; the matching callback must present it within the state TTL.
func (e *Engine) AuthorizationURL(ctx context.Context, redirectURI string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if e.oauthClient == nil || e.states == nil {
		return "", ErrEngineNotReady
	}
	if redirectURI == "" {
		return "", ErrValidation
	}

	state, err := e.states.Issue(ctx, redirectURI)
	if err != nil {
		return "", err
	}
	return e.oauthClient.AuthorizeURL(state, redirectURI), nil
}

// LoginWithOAuth describes the loginwithoauth operation and its observable behavior.
//
// LoginWithOAuth may return an error when input validation, dependency calls, or security checks fail.
// LoginWithOAuth does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The state check runs before anything else; a mismatched, expired, or
// replayed state fails with ErrOAuthStateInvalid and performs no user lookup
// or mutation. Find-or-create is idempotent on the provider user id.
func (e *Engine) LoginWithOAuth(ctx context.Context, req OAuthCallbackRequest) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.oauthClient == nil || e.states == nil {
		return nil, ErrEngineNotReady
	}
	if req.Code == "" {
		return nil, ErrValidation
	}

	redirectURI, err := e.states.Consume(ctx, req.State)
	if err != nil {
		if errors.Is(err, oauth.ErrStateInvalid) {
			e.metricInc(MetricOAuthStateRejected)
			e.emitAudit(ctx, auditEventOAuthStateRejected, false, "", "", ErrOAuthStateInvalid, nil)
			return nil, ErrOAuthStateInvalid
		}
		return nil, err
	}

	providerToken, err := e.oauthClient.Exchange(ctx, req.Code, redirectURI)
	if err != nil {
		return nil, e.mapProviderError(ctx, err)
	}

	profile, err := e.oauthClient.FetchProfile(ctx, providerToken)
	if err != nil {
		return nil, e.mapProviderError(ctx, err)
	}

	now := time.Now().UTC()
	user, _, err := e.users.FindOrCreateByProvider(ctx, profile.ProviderUserID, profile.Name, profile.AvatarURL, now)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	result, err := e.issueResult(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricOAuthSuccess)
	e.emitAudit(ctx, auditEventOAuthLoginSuccess, true, user.ID, "", nil, func() map[string]string {
		return map[string]string{"channel": "oauth"}
	})
	return result, nil
}

func (e *Engine) mapProviderError(ctx context.Context, err error) error {
	var mapped error
	switch {
	case errors.Is(err, oauth.ErrProviderDenied):
		mapped = ErrOAuthCodeInvalid
	case errors.Is(err, oauth.ErrProviderUnavailable):
		mapped = ErrUpstreamUnavailable
	default:
		mapped = err
	}

	e.metricInc(MetricOAuthProviderError)
	e.emitAudit(ctx, auditEventOAuthProviderError, false, "", "", mapped, nil)
	return mapped
}
