// Package greenauth is an embeddable authentication engine for the GreenPark
// catalogue platform: password, one-time-code, and federated OAuth login over
// a shared relational user store, with brute-force lockout, signed session
// token pairs, and audit/metrics instrumentation.
//
// # Usage
//
// Construct an [Engine] through the [Builder]:
//
//	engine, err := greenauth.New().
//		WithConfig(cfg).
//		WithDB(db).
//		WithRedis(redisClient).
//		WithSMSGateway(sms).
//		WithEmailGateway(email).
//		Build()
//
// The Engine is immutable after Build and safe for concurrent use. Every
// operation takes a context and returns either a result or a sentinel error
// from this package; callers branch with errors.Is.
//
// # Identity channels
//
// Three channels resolve into one user record: phone-or-email plus password,
// phone-or-email plus one-time code, and a federated OAuth provider. Shared
// policy — lockout, disabled-account rejection, token issuance — applies
// uniformly regardless of channel; [Engine.Authenticate] dispatches a tagged
// request to the right flow.
//
// # Token model
//
// Sessions are claim-based: a short-lived access token and a long-lived
// refresh token, both HMAC-signed. There is no server-side revocation list;
// a compromised token stays valid until expiry, so operators should keep the
// access TTL short. See the token package for details.
package greenauth
