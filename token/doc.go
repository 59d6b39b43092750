// Package token mints and verifies the signed bearer tokens issued by the
// authentication engine.
//
// # Token model
//
// Both token kinds are HMAC-signed JWTs over a shared symmetric secret. The
// access token is short-lived and carries subject id, role, and display name;
// the refresh token is long-lived and carries only the subject id. A "typ"
// claim discriminates the two so a refresh token can never be presented where
// an access token is required, or vice versa.
//
// There is no persisted blacklist: validity is entirely claim-based. Logout is
// client-side token deletion, and a compromised token remains valid until its
// natural expiry. Operators mitigate this by keeping the access TTL short.
//
// # What this package must NOT do
//
//   - Perform any I/O — issuance and verification are pure CPU work.
//   - Import any other greenauth package.
package token
