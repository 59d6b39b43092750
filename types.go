package greenauth

import (
	"context"
	"time"
)

// Purpose defines a public type used by greenauth APIs.
//
// Purpose instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Purpose string

const (
	// PurposeRegister is an exported constant or variable used by the authentication engine.
	PurposeRegister Purpose = "register"
	// PurposeLogin is an exported constant or variable used by the authentication engine.
	PurposeLogin Purpose = "login"
	// PurposeResetPassword is an exported constant or variable used by the authentication engine.
	PurposeResetPassword Purpose = "reset_password"
)

func (p Purpose) valid() bool {
	switch p {
	case PurposeRegister, PurposeLogin, PurposeResetPassword:
		return true
	default:
		return false
	}
}

// UserView defines a public type used by greenauth APIs.
//
// UserView instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// The password hash is never part of the view.
type UserView struct {
	ID          string         `json:"id"`
	Phone       string         `json:"phone,omitempty"`
	CountryCode string         `json:"countryCode,omitempty"`
	Name        string         `json:"name,omitempty"`
	Email       string         `json:"email,omitempty"`
	Role        string         `json:"role"`
	AvatarURL   string         `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	IsActive    bool           `json:"isActive"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AuthResult defines a public type used by greenauth APIs.
//
// AuthResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuthResult struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

// RegisterRequest defines a public type used by greenauth APIs.
//
// RegisterRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegisterRequest struct {
	CountryCode string
	Phone       string
	Email       string
	Password    string
	Name        string
	Code        string
}

// PasswordLoginRequest defines a public type used by greenauth APIs.
//
// PasswordLoginRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordLoginRequest struct {
	CountryCode string
	Phone       string
	Email       string
	Password    string
}

// CodeLoginRequest defines a public type used by greenauth APIs.
//
// CodeLoginRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeLoginRequest struct {
	CountryCode string
	Phone       string
	Email       string
	Code        string
}

// SendCodeRequest defines a public type used by greenauth APIs.
//
// SendCodeRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SendCodeRequest struct {
	CountryCode string
	Phone       string
	Email       string
	Purpose     Purpose
}

// ResetPasswordRequest defines a public type used by greenauth APIs.
//
// ResetPasswordRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResetPasswordRequest struct {
	CountryCode string
	Phone       string
	Email       string
	Code        string
	NewPassword string
}

// OAuthCallbackRequest defines a public type used by greenauth APIs.
//
// OAuthCallbackRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OAuthCallbackRequest struct {
	State string
	Code  string
}

// AuthRequest defines a public type used by greenauth APIs.
//
// AuthRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// Exactly one variant must be set; Authenticate dispatches to the matching
// channel so shared policy applies uniformly.
type AuthRequest struct {
	Password *PasswordLoginRequest
	Code     *CodeLoginRequest
	OAuth    *OAuthCallbackRequest
}

// DuplicateChecker defines a public type used by greenauth APIs.
//
// Registration consults it in addition to the primary store, so platforms
// with a secondary identity system can veto duplicate phone numbers or
// emails before a user row is created.
type DuplicateChecker interface {
	Exists(ctx context.Context, countryCode, phone, email string) (bool, error)
}
