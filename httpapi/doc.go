// Package httpapi exposes the engine's operations over a gin HTTP surface
// for the catalogue platform's clients.
//
// Every response uses one JSON envelope: {"code", "message", "data"}. Engine
// sentinel errors map onto stable HTTP statuses so clients can branch without
// string matching. The layer holds no business logic; it validates input,
// forwards to the engine, and translates errors.
package httpapi
