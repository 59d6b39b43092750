package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Metadata defines a public type used by greenauth APIs.
//
// Metadata is stored as a JSON text column so the schema stays portable
// across postgres and the sqlite driver used in tests.
type Metadata map[string]any

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// User defines a public type used by greenauth APIs.
//
// User instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type User struct {
	ID string `gorm:"primaryKey;size:36"`

	// Identity anchors. At least one of phone, email, or provider id must be
	// set; each is unique only when present (partial indexes, see Migrate).
	Phone       *string `gorm:"size:32"`
	CountryCode *string `gorm:"size:8"`
	Email       *string `gorm:"size:255"`

	// Nullable: a federated-only user has no local password.
	PasswordHash *string `gorm:"size:255"`

	Name     string `gorm:"size:128"`
	Role     string `gorm:"size:32;default:user"`
	IsActive bool   `gorm:"default:true"`

	ProviderUserID *string `gorm:"size:128"`
	ProviderName   *string `gorm:"size:128"`
	AvatarURL      *string `gorm:"size:512"`

	FailedLoginAttempts int        `gorm:"default:0"`
	LockedUntil         *time.Time `gorm:""`
	LastLoginAt         *time.Time `gorm:""`

	Metadata Metadata `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAnchor reports whether at least one identity anchor is present.
func (u *User) HasAnchor() bool {
	return u.Phone != nil || u.Email != nil || u.ProviderUserID != nil
}

// VerificationCode defines a public type used by greenauth APIs.
//
// VerificationCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationCode struct {
	// ID is a ksuid, so lexical order follows creation order and gives the
	// newest-record read a stable tiebreaker.
	ID string `gorm:"primaryKey;size:27"`

	Subject string `gorm:"size:255;index:idx_codes_lookup,priority:1"`
	Purpose string `gorm:"size:32;index:idx_codes_lookup,priority:2"`
	Code    string `gorm:"size:10"`

	Attempts int  `gorm:"default:0"`
	Used     bool `gorm:"default:false;index:idx_codes_lookup,priority:3"`

	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index:idx_codes_lookup,priority:4"`
}

var (
	// ErrNotFound is an exported constant or variable used by the authentication engine.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is an exported constant or variable used by the authentication engine.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale is returned by conditional updates that matched no row, meaning
	// another request already consumed or changed the record.
	ErrStale = errors.New("record already consumed")
)
