package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStore defines a public type used by greenauth APIs.
//
// UserStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore describes the newuserstore operation and its observable behavior.
//
// NewUserStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if !user.HasAnchor() {
		return errors.New("user needs at least one of phone, email, or provider id")
	}
	if user.Role == "" {
		user.Role = "user"
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, "id = ?", id)
}

// FindByPhone describes the findbyphone operation and its observable behavior.
//
// FindByPhone may return an error when input validation, dependency calls, or security checks fail.
// FindByPhone does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) FindByPhone(ctx context.Context, countryCode, phone string) (*User, error) {
	return s.findOne(ctx, "country_code = ? AND phone = ?", countryCode, phone)
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, "email = ?", email)
}

// FindByProviderID describes the findbyproviderid operation and its observable behavior.
//
// FindByProviderID may return an error when input validation, dependency calls, or security checks fail.
// FindByProviderID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) FindByProviderID(ctx context.Context, providerUserID string) (*User, error) {
	return s.findOne(ctx, "provider_user_id = ?", providerUserID)
}

func (s *UserStore) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RecordLoginFailure describes the recordloginfailure operation and its observable behavior.
//
// RecordLoginFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordLoginFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The increment runs SQL-side so racing failures never lose counts; lockUntil,
// when non-nil, is persisted in the same UPDATE.
func (s *UserStore) RecordLoginFailure(ctx context.Context, id string, lockUntil *time.Time) error {
	updates := map[string]any{
		"failed_login_attempts": gorm.Expr("failed_login_attempts + ?", 1),
	}
	if lockUntil != nil {
		updates["locked_until"] = *lockUntil
	}

	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetLoginState describes the resetloginstate operation and its observable behavior.
//
// ResetLoginState may return an error when input validation, dependency calls, or security checks fail.
// ResetLoginState does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) ResetLoginState(ctx context.Context, id string, loginAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         loginAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearLock describes the clearlock operation and its observable behavior.
//
// ClearLock may return an error when input validation, dependency calls, or security checks fail.
// ClearLock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Used when an expired lock is observed. Only the expiry is dropped; the
// failure counter survives so counting resumes where it left off.
func (s *UserStore) ClearLock(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Update("locked_until", nil).Error
}

// UpdatePasswordHash describes the updatepasswordhash operation and its observable behavior.
//
// UpdatePasswordHash may return an error when input validation, dependency calls, or security checks fail.
// UpdatePasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":         hash,
		"failed_login_attempts": 0,
		"locked_until":          nil,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOrCreateByProvider describes the findorcreatebyprovider operation and its observable behavior.
//
// FindOrCreateByProvider may return an error when input validation, dependency calls, or security checks fail.
// FindOrCreateByProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Idempotent: a second callback with the same provider id refreshes the
// provider-issued profile fields instead of creating a duplicate user. The
// created flag reports which path was taken.
func (s *UserStore) FindOrCreateByProvider(ctx context.Context, providerUserID, name, avatarURL string, now time.Time) (*User, bool, error) {
	var (
		user    *User
		created bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing User
		err := tx.Where("provider_user_id = ?", providerUserID).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]any{
				"provider_name": name,
				"last_login_at": now,
			}
			if name != "" && existing.Name == "" {
				updates["name"] = name
			}
			if avatarURL != "" {
				updates["avatar_url"] = avatarURL
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return err
			}
			user = &existing
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			fresh := &User{
				ID:             uuid.NewString(),
				Name:           name,
				Role:           "user",
				IsActive:       true,
				ProviderUserID: &providerUserID,
				LastLoginAt:    &now,
			}
			if name != "" {
				fresh.ProviderName = &name
			}
			if avatarURL != "" {
				fresh.AvatarURL = &avatarURL
			}
			if err := tx.Create(fresh).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Lost the insert race; the winner's row is authoritative.
					if err := tx.Where("provider_user_id = ?", providerUserID).First(&existing).Error; err != nil {
						return err
					}
					user = &existing
					return nil
				}
				return err
			}
			user = fresh
			created = true
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// Deactivate describes the deactivate operation and its observable behavior.
//
// Deactivate may return an error when input validation, dependency calls, or security checks fail.
// Deactivate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *UserStore) Deactivate(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transaction describes the transaction operation and its observable behavior.
//
// Transaction may return an error when input validation, dependency calls, or security checks fail.
// Transaction does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// fn receives a UserStore bound to the transaction; rollback happens on any
// returned error so registration never leaves partial rows behind.
func (s *UserStore) Transaction(ctx context.Context, fn func(txStore *UserStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserStore{db: tx})
	})
}
