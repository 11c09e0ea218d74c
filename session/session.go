package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"workshop-backend/domain"
)

// Claims is the JWT payload issued after a successful sign-in (subject = user id).
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is returned to clients after sign-in.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// User is the public view of an account embedded in a Session.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Provider string         `json:"provider,omitempty"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Issuer signs and parses HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. An empty secret is rejected so tokens are never signed with it.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: JWT secret not configured", domain.ErrConfigMissing)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// SetNow overrides the time function (for testing).
func (i *Issuer) SetNow(fn func() time.Time) {
	i.now = fn
}

// Issue signs a new token for the given user.
func (i *Issuer) Issue(user User) (*Session, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("signing session token: %w", err)
	}
	return &Session{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(i.ttl / time.Second),
		ExpiresAt:   exp.UTC(),
		User:        user,
	}, nil
}

// Parse validates a token, enforcing HS256, and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	// Expiry uses the injectable clock.
	if claims.ExpiresAt == nil || !i.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: token missing subject", domain.ErrUnauthorized)
	}
	return &claims, nil
}
