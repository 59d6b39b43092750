package greenauth

import (
	"errors"
	"time"
)

// Config defines a public type used by greenauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	Code     CodeConfig
	OAuth    OAuthConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by greenauth APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by greenauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Cost           int
	UpgradeOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by greenauth APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	MaxFailures  int
	LockDuration time.Duration
}

/*
====================================
CODE CONFIG
====================================
*/

// CodeConfig defines a public type used by greenauth APIs.
//
// CodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeConfig struct {
	Digits      int
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int

	// SMSTemplate and EmailTemplate receive the code via %s.
	SMSTemplate   string
	EmailSubject  string
	EmailTemplate string
}

/*
====================================
OAUTH CONFIG
====================================
*/

// OAuthConfig defines a public type used by greenauth APIs.
//
// OAuthConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
	Timeout      time.Duration
	StateTTL     time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by greenauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by greenauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
			Issuer:     "greenauth",
		},
		Password: PasswordConfig{
			Cost:           12,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			MaxFailures:  5,
			LockDuration: 30 * time.Minute,
		},
		Code: CodeConfig{
			Digits:        6,
			TTL:           5 * time.Minute,
			Cooldown:      time.Minute,
			MaxAttempts:   5,
			SMSTemplate:   "Your verification code is %s. It expires in 5 minutes.",
			EmailSubject:  "Your verification code",
			EmailTemplate: "Your verification code is %s. It expires in 5 minutes.",
		},
		OAuth: OAuthConfig{
			Timeout:  5 * time.Second,
			StateTTL: 10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("Token.Secret must be at least 32 bytes")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token.AccessTTL must be positive")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("Token.RefreshTTL must exceed Token.AccessTTL")
	}
	if c.Password.Cost < 12 {
		return errors.New("Password.Cost must be >= 12")
	}
	if c.Lockout.MaxFailures <= 0 {
		return errors.New("Lockout.MaxFailures must be positive")
	}
	if c.Lockout.LockDuration <= 0 {
		return errors.New("Lockout.LockDuration must be positive")
	}
	if c.Code.Digits < 4 || c.Code.Digits > 10 {
		return errors.New("Code.Digits must be between 4 and 10")
	}
	if c.Code.TTL <= 0 {
		return errors.New("Code.TTL must be positive")
	}
	if c.Code.Cooldown < 0 || c.Code.Cooldown >= c.Code.TTL {
		return errors.New("Code.Cooldown must be shorter than Code.TTL")
	}
	if c.Code.MaxAttempts <= 0 {
		return errors.New("Code.MaxAttempts must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}
