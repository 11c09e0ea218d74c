package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"workshop-backend/models"
)

// PurchaseStore persists verified purchases.
type PurchaseStore struct {
	db *gorm.DB
}

func NewPurchaseStore(db *gorm.DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

// FindByReceiptHash returns (nil, nil) when the receipt was never recorded.
func (s *PurchaseStore) FindByReceiptHash(ctx context.Context, hash string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.WithContext(ctx).
		Select("id", "user_id", "receipt_hash", "product_id", "app_slug").
		Where("receipt_hash = ?", hash).
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// Insert writes purchase; a repeated receipt hash is domain.ErrDuplicate.
func (s *PurchaseStore) Insert(ctx context.Context, purchase *models.Purchase) error {
	return translate(s.db.WithContext(ctx).Create(purchase).Error)
}
