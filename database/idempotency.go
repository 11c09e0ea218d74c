package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"workshop-backend/models"
)

// IdempotencyStore records Idempotency-Key requests and their responses.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve returns the record for (rec.UserID, rec.Key), inserting rec as
// pending when none exists. created reports whether rec was inserted.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec *models.IdempotencyKey) (existing *models.IdempotencyKey, created bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found models.IdempotencyKey
		err := tx.Where("user_id = ? AND key = ?", rec.UserID, rec.Key).First(&found).Error
		if err == nil {
			existing = &found
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return translate(tx.Create(rec).Error)
	})
	if err == nil && existing == nil {
		return rec, true, nil
	}
	if err == nil {
		return existing, false, nil
	}

	// Lost a race with a concurrent request carrying the same key.
	var found models.IdempotencyKey
	if e := s.db.WithContext(ctx).Where("user_id = ? AND key = ?", rec.UserID, rec.Key).First(&found).Error; e != nil {
		return nil, false, err
	}
	return &found, false, nil
}

// Complete stores the response of a reserved request.
func (s *IdempotencyStore) Complete(ctx context.Context, userID, key string, status int, body []byte) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where("user_id = ? AND key = ?", userID, key).
		Updates(map[string]any{
			"response_status": status,
			"response_body":   body,
			"completed_at":    &now,
		}).Error
}

// Release forgets a pending reservation so the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, userID, key string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND response_status = 0", userID, key).
		Delete(&models.IdempotencyKey{}).Error
}
