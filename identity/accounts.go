package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"workshop-backend/domain"
	"workshop-backend/models"
	"workshop-backend/session"
)

// UserRepository persists accounts.
//
// FindByEmail returns (nil, nil) when no row matches; Create returns
// domain.ErrDuplicate when a unique index rejects the row.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// Accounts is the password identity store used by the Federator.
type Accounts struct {
	users  UserRepository
	tokens *session.Issuer
}

// NewAccounts creates an Accounts directory.
func NewAccounts(users UserRepository, tokens *session.Issuer) *Accounts {
	return &Accounts{users: users, tokens: tokens}
}

// SignIn checks the password and issues a session token.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	email = normalizeEmail(email)
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", email, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := user.ComparePassword(password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	var meta map[string]any
	if len(user.Metadata) > 0 {
		_ = json.Unmarshal(user.Metadata, &meta)
	}
	return a.tokens.Issue(session.User{
		ID:       user.ID,
		Email:    user.Email,
		Provider: user.Provider,
		Metadata: meta,
	})
}

// Create provisions an account with a bcrypt-hashed password.
func (a *Accounts) Create(ctx context.Context, acct NewAccount) error {
	user := &models.User{
		Email:    normalizeEmail(acct.Email),
		Provider: acct.Provider,
		Subject:  acct.Subject,
	}
	if user.Provider == "" {
		user.Provider = "email"
	}
	if acct.Phone != "" {
		phone := acct.Phone
		user.Phone = &phone
	}
	if len(acct.Metadata) > 0 {
		raw, err := json.Marshal(acct.Metadata)
		if err != nil {
			return fmt.Errorf("encoding user metadata: %w", err)
		}
		user.Metadata = datatypes.JSON(raw)
	}
	if err := user.SetPassword(acct.Password); err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := a.users.Create(ctx, user); err != nil {
		var dup *domain.DuplicateError
		switch {
		case errors.As(err, &dup) && dup.Constraint != "" && dup.Constraint != models.UserEmailIndex:
			// Another account already holds this phone (or other unique attribute).
			return fmt.Errorf("%w: %s", domain.ErrConflict, dup.Constraint)
		case errors.Is(err, domain.ErrDuplicate):
			return fmt.Errorf("%w: %s", domain.ErrAlreadyRegistered, user.Email)
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// normalizeEmail lowercases only the domain. Local parts stay as given
// because derived addresses embed case-sensitive provider subjects.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}
