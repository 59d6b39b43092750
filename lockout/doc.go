// Package lockout decides whether an account may attempt authentication based
// on its recorded failure history.
//
// The package is deliberately pure: [Policy.Evaluate] takes the persisted
// failure counter, the persisted lock expiry, and the current time, and
// returns a decision. It performs no I/O and holds no state, so callers can
// evaluate under any storage layer and unit tests need no fixtures.
//
// A lock that has passed its expiry is treated as no lock at all, but the
// failure counter is never reset by mere passage of time: counting resumes
// from the persisted value and the next failure re-trips the lock. Only a
// successful login clears the counter.
package lockout
