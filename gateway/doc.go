// Package gateway delivers verification codes out of band through pluggable
// SMS and email providers.
//
// The engine depends only on the [SMSSender] and [EmailSender] interfaces;
// the HTTP implementations here suit JSON-over-HTTP providers and carry
// bounded timeouts so a slow provider can never hold a request hostage.
// Delivery runs after the code is persisted, so a failed send wastes the code
// but never corrupts state.
package gateway
