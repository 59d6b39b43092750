package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPrefix  = "greenauth:oauth:state:"
	defaultStateTTL = 10 * time.Minute
)

// ErrStateInvalid is an exported constant or variable used by the authentication engine.
var ErrStateInvalid = errors.New("oauth state missing, expired, or already used")

// StateStore defines a public type used by greenauth APIs.
//
// StateStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore describes the newstatestore operation and its observable behavior.
//
// NewStateStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{client: client, ttl: ttl}
}

// Issue describes the issue operation and its observable behavior.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The stored value is the redirect URI the callback must continue with.
func (s *StateStore) Issue(ctx context.Context, redirectURI string) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, stateKeyPrefix+state, redirectURI, s.ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// Consume describes the consume operation and its observable behavior.
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// GETDEL makes consumption atomic: a replayed state finds nothing and fails
// with ErrStateInvalid, and no user lookup happens on that path.
func (s *StateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrStateInvalid
	}

	redirectURI, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrStateInvalid
		}
		return "", err
	}
	return redirectURI, nil
}
