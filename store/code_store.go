package store

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// CodeStore defines a public type used by greenauth APIs.
//
// CodeStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeStore struct {
	db *gorm.DB
}

// NewCodeStore describes the newcodestore operation and its observable behavior.
//
// NewCodeStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCodeStore(db *gorm.DB) *CodeStore {
	return &CodeStore{db: db}
}

// Insert describes the insert operation and its observable behavior.
//
// Insert may return an error when input validation, dependency calls, or security checks fail.
// Insert does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Prior unused codes for the same subject and purpose are left in place; the
// newest-wins read rule in LatestEligible supersedes them.
func (s *CodeStore) Insert(ctx context.Context, code *VerificationCode) error {
	if code.ID == "" {
		code.ID = ksuid.New().String()
	}
	return s.db.WithContext(ctx).Create(code).Error
}

// LatestEligible describes the latesteligible operation and its observable behavior.
//
// LatestEligible may return an error when input validation, dependency calls, or security checks fail.
// LatestEligible does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The eligible record is the newest unused, unexpired one for the subject and
// purpose; ksuid ids break created_at ties deterministically.
func (s *CodeStore) LatestEligible(ctx context.Context, subject, purpose string, now time.Time) (*VerificationCode, error) {
	var code VerificationCode
	err := s.db.WithContext(ctx).
		Where("subject = ? AND purpose = ? AND used = ? AND expires_at > ?", subject, purpose, false, now).
		Order("created_at DESC, id DESC").
		Limit(1).
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &code, nil
}

// IssuedWithin describes the issuedwithin operation and its observable behavior.
//
// IssuedWithin may return an error when input validation, dependency calls, or security checks fail.
// IssuedWithin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Reports whether a still-live code for the subject and purpose was created
// inside the cooldown window ending at now.
func (s *CodeStore) IssuedWithin(ctx context.Context, subject, purpose string, window time.Duration, now time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&VerificationCode{}).
		Where("subject = ? AND purpose = ? AND expires_at > ? AND created_at > ?",
			subject, purpose, now, now.Add(-window)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementAttempts describes the incrementattempts operation and its observable behavior.
//
// IncrementAttempts may return an error when input validation, dependency calls, or security checks fail.
// IncrementAttempts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Returns ErrStale when the record was consumed concurrently.
func (s *CodeStore) IncrementAttempts(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&VerificationCode{}).
		Where("id = ? AND used = ?", id, false).
		Update("attempts", gorm.Expr("attempts + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// MarkUsed describes the markused operation and its observable behavior.
//
// MarkUsed may return an error when input validation, dependency calls, or security checks fail.
// MarkUsed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Exactly one caller can win the used flag; losers get ErrStale so a code is
// never accepted twice.
func (s *CodeStore) MarkUsed(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&VerificationCode{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// PurgeExpired describes the purgeexpired operation and its observable behavior.
//
// PurgeExpired may return an error when input validation, dependency calls, or security checks fail.
// PurgeExpired does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Deletes logically dead rows (expired or already consumed). Purely hygienic;
// correctness never depends on it running.
func (s *CodeStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ? OR used = ?", now, true).
		Delete(&VerificationCode{})
	return result.RowsAffected, result.Error
}
