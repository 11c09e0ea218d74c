package database

import (
	"fmt"

	"gorm.io/gorm"

	"workshop-backend/models"
)

// Migrate applies the (idempotent) schema migrations:
// - AutoMigrate (tables/columns/index tags)
// - Unique indexes the reconciliation and login flows rely on
// - Basic CHECK constraints
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Purchase{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		// Index tags already create these; the statements keep databases
		// migrated by hand in line.
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_users_email ON users (email)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_user_purchases_receipt_hash ON user_purchases (receipt_hash)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_idempotency_keys_user_key ON idempotency_keys (user_id, key)`,
			`CREATE INDEX IF NOT EXISTS idx_user_purchases_user_app ON user_purchases (user_id, app_slug)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		checks := []string{
			// receipt_hash is a hex SHA-256
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'user_purchases'::regclass
					  AND conname  = 'chk_user_purchases_receipt_hash_len'
				) THEN
					ALTER TABLE user_purchases
					ADD CONSTRAINT chk_user_purchases_receipt_hash_len
					CHECK (char_length(receipt_hash) = 64);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'users'::regclass
					  AND conname  = 'chk_users_email_nonempty'
				) THEN
					ALTER TABLE users
					ADD CONSTRAINT chk_users_email_nonempty
					CHECK (email <> '');
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}
		return nil
	})
}
