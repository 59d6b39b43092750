package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func newPhoneUser(t *testing.T, users *UserStore, countryCode, phone string) *User {
	t.Helper()

	user := &User{
		Phone:       strPtr(phone),
		CountryCode: strPtr(countryCode),
		Name:        "Test User",
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return user
}

func TestCreateAndFindByPhone(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()

	created := newPhoneUser(t, users, "86", "13800000001")
	if created.ID == "" {
		t.Fatal("expected generated user id")
	}
	if created.Role != "user" {
		t.Fatalf("expected default role, got %q", created.Role)
	}

	found, err := users.FindByPhone(ctx, "86", "13800000001")
	if err != nil {
		t.Fatalf("FindByPhone failed: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected id %q, got %q", created.ID, found.ID)
	}

	if _, err := users.FindByPhone(ctx, "86", "13899999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRejectsDuplicatePhone(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()

	newPhoneUser(t, users, "86", "13800000001")

	dup := &User{Phone: strPtr("13800000001"), CountryCode: strPtr("86")}
	if err := users.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Same number under another country code is a different identity.
	other := &User{Phone: strPtr("13800000001"), CountryCode: strPtr("1")}
	if err := users.Create(ctx, other); err != nil {
		t.Fatalf("expected cross-country create to succeed, got %v", err)
	}
}

func TestCreateRequiresAnchor(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	if err := users.Create(context.Background(), &User{Name: "anchorless"}); err == nil {
		t.Fatal("expected error for user without identity anchor")
	}
}

func TestRecordLoginFailureAndReset(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()
	user := newPhoneUser(t, users, "86", "13800000001")

	for i := 0; i < 3; i++ {
		if err := users.RecordLoginFailure(ctx, user.ID, nil); err != nil {
			t.Fatalf("RecordLoginFailure failed: %v", err)
		}
	}

	until := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	if err := users.RecordLoginFailure(ctx, user.ID, &until); err != nil {
		t.Fatalf("RecordLoginFailure with lock failed: %v", err)
	}

	loaded, err := users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.FailedLoginAttempts != 4 {
		t.Fatalf("expected 4 failures, got %d", loaded.FailedLoginAttempts)
	}
	if loaded.LockedUntil == nil || !loaded.LockedUntil.Equal(until) {
		t.Fatalf("expected lock until %v, got %v", until, loaded.LockedUntil)
	}

	loginAt := time.Now().UTC().Truncate(time.Second)
	if err := users.ResetLoginState(ctx, user.ID, loginAt); err != nil {
		t.Fatalf("ResetLoginState failed: %v", err)
	}

	loaded, err = users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.FailedLoginAttempts != 0 || loaded.LockedUntil != nil {
		t.Fatalf("expected cleared lockout state, got %d / %v", loaded.FailedLoginAttempts, loaded.LockedUntil)
	}
	if loaded.LastLoginAt == nil || !loaded.LastLoginAt.Equal(loginAt) {
		t.Fatalf("expected last login %v, got %v", loginAt, loaded.LastLoginAt)
	}
}

func TestClearLockKeepsFailureCounter(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()
	user := newPhoneUser(t, users, "86", "13800000001")

	for i := 0; i < 4; i++ {
		if err := users.RecordLoginFailure(ctx, user.ID, nil); err != nil {
			t.Fatalf("RecordLoginFailure failed: %v", err)
		}
	}
	until := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	if err := users.RecordLoginFailure(ctx, user.ID, &until); err != nil {
		t.Fatalf("RecordLoginFailure with lock failed: %v", err)
	}

	if err := users.ClearLock(ctx, user.ID); err != nil {
		t.Fatalf("ClearLock failed: %v", err)
	}

	loaded, err := users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.LockedUntil != nil {
		t.Fatalf("expected lock expiry dropped, got %v", loaded.LockedUntil)
	}
	if loaded.FailedLoginAttempts != 5 {
		t.Fatalf("expected counter to survive, got %d", loaded.FailedLoginAttempts)
	}
}

func TestRecordLoginFailureUnknownUser(t *testing.T) {
	users := NewUserStore(newTestDB(t))

	if err := users.RecordLoginFailure(context.Background(), "no-such-id", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindOrCreateByProviderIsIdempotent(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first, created, err := users.FindOrCreateByProvider(ctx, "wx-openid-1", "Alice", "https://cdn/avatar1.png", now)
	if err != nil {
		t.Fatalf("FindOrCreateByProvider failed: %v", err)
	}
	if !created {
		t.Fatal("expected first callback to create")
	}
	if first.ProviderUserID == nil || *first.ProviderUserID != "wx-openid-1" {
		t.Fatalf("unexpected provider id: %v", first.ProviderUserID)
	}

	later := now.Add(time.Hour)
	second, created, err := users.FindOrCreateByProvider(ctx, "wx-openid-1", "Alice Renamed", "https://cdn/avatar2.png", later)
	if err != nil {
		t.Fatalf("FindOrCreateByProvider failed: %v", err)
	}
	if created {
		t.Fatal("expected second callback to reuse the existing user")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user id, got %q and %q", first.ID, second.ID)
	}

	loaded, err := users.FindByProviderID(ctx, "wx-openid-1")
	if err != nil {
		t.Fatalf("FindByProviderID failed: %v", err)
	}
	if loaded.AvatarURL == nil || *loaded.AvatarURL != "https://cdn/avatar2.png" {
		t.Fatalf("expected refreshed avatar, got %v", loaded.AvatarURL)
	}
	if loaded.LastLoginAt == nil || !loaded.LastLoginAt.Equal(later) {
		t.Fatalf("expected refreshed last login, got %v", loaded.LastLoginAt)
	}
}

func TestDeactivate(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()
	user := newPhoneUser(t, users, "86", "13800000001")

	if err := users.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	loaded, err := users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.IsActive {
		t.Fatal("expected inactive user")
	}
	// Deactivation is a flag flip; the row survives.
	if loaded.Phone == nil {
		t.Fatal("expected row to survive deactivation")
	}
}

func TestTransactionRollsBackPartialRegistration(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()

	fail := errors.New("second write failed")
	err := users.Transaction(ctx, func(tx *UserStore) error {
		if err := tx.Create(ctx, &User{Phone: strPtr("13800000001"), CountryCode: strPtr("86")}); err != nil {
			return err
		}
		return fail
	})
	if !errors.Is(err, fail) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	if _, err := users.FindByPhone(ctx, "86", "13800000001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rollback to drop the row, got %v", err)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	users := NewUserStore(newTestDB(t))
	ctx := context.Background()

	user := &User{
		Email:    strPtr("alice@example.com"),
		Metadata: Metadata{"source": "import", "batch": float64(3)},
	}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loaded, err := users.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if loaded.Metadata["source"] != "import" || loaded.Metadata["batch"] != float64(3) {
		t.Fatalf("unexpected metadata: %v", loaded.Metadata)
	}
}

func newTestCode(t *testing.T, codes *CodeStore, subject, purpose, code string, createdAt time.Time) *VerificationCode {
	t.Helper()

	record := &VerificationCode{
		Subject:   subject,
		Purpose:   purpose,
		Code:      code,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(5 * time.Minute),
	}
	if err := codes.Insert(context.Background(), record); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return record
}

func TestLatestEligiblePrefersNewest(t *testing.T) {
	codes := NewCodeStore(newTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	newTestCode(t, codes, "86-13800000001", "login", "111111", base.Add(-2*time.Minute))
	newest := newTestCode(t, codes, "86-13800000001", "login", "222222", base.Add(-1*time.Minute))
	newTestCode(t, codes, "86-13800000001", "register", "333333", base)

	got, err := codes.LatestEligible(ctx, "86-13800000001", "login", base)
	if err != nil {
		t.Fatalf("LatestEligible failed: %v", err)
	}
	if got.ID != newest.ID {
		t.Fatalf("expected newest login code %q, got %q", newest.ID, got.ID)
	}

	if _, err := codes.LatestEligible(ctx, "86-13800000001", "reset_password", base); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing purpose, got %v", err)
	}
}

func TestLatestEligibleSkipsExpiredAndUsed(t *testing.T) {
	codes := NewCodeStore(newTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	newTestCode(t, codes, "alice@example.com", "login", "111111", base.Add(-10*time.Minute))
	used := newTestCode(t, codes, "alice@example.com", "login", "222222", base)
	if err := codes.MarkUsed(ctx, used.ID); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}

	if _, err := codes.LatestEligible(ctx, "alice@example.com", "login", base); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when only dead codes exist, got %v", err)
	}
}

func TestMarkUsedSingleWinner(t *testing.T) {
	codes := NewCodeStore(newTestDB(t))
	ctx := context.Background()
	record := newTestCode(t, codes, "86-13800000001", "register", "246810", time.Now().UTC())

	if err := codes.MarkUsed(ctx, record.ID); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	if err := codes.MarkUsed(ctx, record.ID); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale on second consume, got %v", err)
	}
	if err := codes.IncrementAttempts(ctx, record.ID); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale incrementing a used code, got %v", err)
	}
}

func TestIncrementAttempts(t *testing.T) {
	codes := NewCodeStore(newTestDB(t))
	ctx := context.Background()
	record := newTestCode(t, codes, "86-13800000001", "login", "246810", time.Now().UTC())

	for i := 0; i < 3; i++ {
		if err := codes.IncrementAttempts(ctx, record.ID); err != nil {
			t.Fatalf("IncrementAttempts failed: %v", err)
		}
	}

	loaded, err := codes.LatestEligible(ctx, "86-13800000001", "login", time.Now().UTC())
	if err != nil {
		t.Fatalf("LatestEligible failed: %v", err)
	}
	if loaded.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", loaded.Attempts)
	}
}

func TestIssuedWithin(t *testing.T) {
	codes := NewCodeStore(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	newTestCode(t, codes, "86-13800000001", "login", "111111", now.Add(-10*time.Second))

	hot, err := codes.IssuedWithin(ctx, "86-13800000001", "login", time.Minute, now)
	if err != nil {
		t.Fatalf("IssuedWithin failed: %v", err)
	}
	if !hot {
		t.Fatal("expected cooldown window to report the fresh code")
	}

	cold, err := codes.IssuedWithin(ctx, "86-13800000001", "login", 5*time.Second, now)
	if err != nil {
		t.Fatalf("IssuedWithin failed: %v", err)
	}
	if cold {
		t.Fatal("expected code outside the window to be ignored")
	}

	otherPurpose, err := codes.IssuedWithin(ctx, "86-13800000001", "register", time.Minute, now)
	if err != nil {
		t.Fatalf("IssuedWithin failed: %v", err)
	}
	if otherPurpose {
		t.Fatal("expected cooldown to be scoped per purpose")
	}
}

func TestPurgeExpired(t *testing.T) {
	codes := NewCodeStore(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	newTestCode(t, codes, "a", "login", "111111", now.Add(-time.Hour))
	used := newTestCode(t, codes, "b", "login", "222222", now)
	if err := codes.MarkUsed(ctx, used.ID); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	live := newTestCode(t, codes, "c", "login", "333333", now)

	purged, err := codes.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged rows, got %d", purged)
	}

	if _, err := codes.LatestEligible(ctx, "c", "login", now); err != nil {
		t.Fatalf("expected live code %q to survive, got %v", live.ID, err)
	}
}
