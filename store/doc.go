// Package store persists users and verification codes in a relational
// database through gorm.
//
// # Concurrency contract
//
// The engine's counters are classic check-then-act races, so every counter
// mutation here is a single conditional UPDATE rather than a read-modify-write
// in application code:
//
//   - failed-login increments use a SQL-side expression
//   - verification-code attempt increments and the used flag are guarded by
//     "used = false" and report whether the row was actually won
//
// Two racing callers therefore converge to "one attempt later than ideal" at
// worst, never to a double-spent code or a lockout that cannot trigger.
//
// # Index layout
//
// Phone (scoped by country code), email, and provider id carry partial unique
// indexes so they are unique only when present; verification codes carry a
// composite lookup index matching the newest-eligible read path.
package store
