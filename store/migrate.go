package store

import "gorm.io/gorm"

// Partial unique indexes: phone/email/provider id are unique only when
// present. The WHERE form is understood by both postgres and sqlite.
var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_phone ON users (country_code, phone) WHERE phone IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (email) WHERE email IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_provider ON users (provider_user_id) WHERE provider_user_id IS NOT NULL`,
}

// Migrate describes the migrate operation and its observable behavior.
//
// Migrate may return an error when input validation, dependency calls, or security checks fail.
// Migrate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &VerificationCode{}); err != nil {
		return err
	}
	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
