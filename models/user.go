package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PasswordCost is the bcrypt cost used by SetPassword.
var PasswordCost = 12

// Unique indexes on users, as named in the struct tags below.
const (
	UserEmailIndex = "uniq_users_email"
	UserPhoneIndex = "uniq_users_phone"
)

// User is an account in the password identity store. Federated accounts carry
// the provider name and the provider subject they were derived from.
type User struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"not null;uniqueIndex:uniq_users_email"`
	Password  []byte         `json:"-" gorm:"not null"`
	Phone     *string        `json:"phone,omitempty" gorm:"uniqueIndex:uniq_users_phone"`
	Provider  string         `json:"provider" gorm:"size:32;not null;default:email"`
	Subject   string         `json:"-" gorm:"size:128;index"`
	Metadata  datatypes.JSON `json:"user_metadata" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return
}

func (user *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return err
	}
	user.Password = hashedPassword
	return nil
}

func (user *User) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword(user.Password, []byte(password))
}
