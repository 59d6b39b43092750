// Package oauth talks to the federated identity provider and manages the
// one-time anti-forgery state values used around the authorization redirect.
//
// The [Client] performs the two provider calls of the callback flow: exchange
// the authorization code for a provider token, then fetch the profile behind
// it. Both calls run on a bounded-timeout HTTP client and never hold database
// state while waiting.
//
// The [StateStore] keeps issued state values in redis with a short TTL and
// consumes them atomically with GETDEL, so a state value can validate at most
// one callback even across server instances.
package oauth
