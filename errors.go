package greenauth

import "errors"

var (
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("invalid request")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("phone/password incorrect")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountLocked is an exported constant or variable used by the authentication engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDisabled is an exported constant or variable used by the authentication engine.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrDuplicateAccount is an exported constant or variable used by the authentication engine.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrCodeNotFound is an exported constant or variable used by the authentication engine.
	ErrCodeNotFound = errors.New("verification code not found")
	// ErrCodeMismatch is an exported constant or variable used by the authentication engine.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrCodeExhausted is an exported constant or variable used by the authentication engine.
	ErrCodeExhausted = errors.New("verification code attempts exhausted")
	// ErrCodeRateLimited is an exported constant or variable used by the authentication engine.
	ErrCodeRateLimited = errors.New("verification code requested too soon")
	// ErrDeliveryFailed is an exported constant or variable used by the authentication engine.
	ErrDeliveryFailed = errors.New("code delivery failed")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is an exported constant or variable used by the authentication engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenWrongType is an exported constant or variable used by the authentication engine.
	ErrTokenWrongType = errors.New("token type mismatch")
	// ErrOAuthStateInvalid is an exported constant or variable used by the authentication engine.
	ErrOAuthStateInvalid = errors.New("oauth state invalid or expired")
	// ErrOAuthCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrOAuthCodeInvalid = errors.New("oauth authorization code rejected")
	// ErrUpstreamUnavailable is an exported constant or variable used by the authentication engine.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
