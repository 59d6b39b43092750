package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	minCost      = 12
	minPassBytes = 6
)

var (
	// ErrPasswordTooShort is returned by Hash when the plaintext is shorter
	// than the 6-byte minimum.
	ErrPasswordTooShort = errors.New("password must be at least 6 bytes")
	// ErrCostTooLow is returned by New when the configured work factor is
	// below the enforced minimum of 12.
	ErrCostTooLow = errors.New("bcrypt cost must be >= 12")
)

// Config defines a public type used by greenauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Cost int
}

// Hasher defines a public type used by greenauth APIs.
//
// Hasher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hasher struct {
	config Config
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(cfg Config) (*Hasher, error) {
	if cfg.Cost == 0 {
		cfg.Cost = minCost
	}
	if cfg.Cost < minCost {
		return nil, ErrCostTooLow
	}
	if cfg.Cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost exceeds maximum")
	}

	return &Hasher{config: cfg}, nil
}

// Hash describes the hash operation and its observable behavior.
//
// Hash may return an error when input validation, dependency calls, or security checks fail.
// Hash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Hasher) Hash(plaintext string) (string, error) {
	// Password processing uses raw string bytes exactly as provided (no Unicode normalization).
	if len(plaintext) < minPassBytes {
		return "", ErrPasswordTooShort
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.config.Cost)
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. A malformed or
// empty digest verifies as false; Verify never fails.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// NeedsRehash describes the needsrehash operation and its observable behavior.
//
// NeedsRehash may return an error when input validation, dependency calls, or security checks fail.
// NeedsRehash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Hasher) NeedsRehash(digest string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false, err
	}

	return cost < h.config.Cost, nil
}
