package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Purchase is a verified App Store purchase bound to one user. ReceiptHash
// (SHA-256 of the submitted receipt blob) is the de-duplication key.
type Purchase struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	UserID         string         `json:"user_id" gorm:"not null;index"`
	AppSlug        string         `json:"app_slug" gorm:"size:64;not null"`
	ProductID      string         `json:"product_id" gorm:"size:128;not null"`
	Platform       string         `json:"platform" gorm:"size:16;not null"`
	TransactionID  string         `json:"transaction_id" gorm:"size:64;index"`
	ReceiptHash    string         `json:"receipt_hash" gorm:"size:64;not null;uniqueIndex:uniq_user_purchases_receipt_hash"`
	ReceiptExcerpt string         `json:"-" gorm:"column:receipt_data;type:text"`
	SourceDeviceID string         `json:"source_device_id" gorm:"column:migrated_from_device;size:128"`
	IsValid        bool           `json:"is_valid"`
	Environment    string         `json:"environment" gorm:"size:16"`
	PurchasedAt    time.Time      `json:"purchased_at"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	Transaction    datatypes.JSON `json:"-" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (Purchase) TableName() string { return "user_purchases" }

func (purchase *Purchase) BeforeCreate(tx *gorm.DB) (err error) {
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	return
}
