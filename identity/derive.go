package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"workshop-backend/domain"
)

// ProviderWeChat is the provider tag of WeChat mini-program logins.
const ProviderWeChat = "wechat"

// FederatedIdentity is the synthetic credential of a third-party subject.
// Email and Password are recomputed on every login and never stored in clear.
type FederatedIdentity struct {
	Provider string
	Subject  string
	Email    string
	Password string
}

// Derive maps (provider, subject) onto a stable email/password pair. The same
// inputs always yield the same pair, so no per-user secret has to be kept.
func Derive(provider, subject, secret, syntheticDomain string) (FederatedIdentity, error) {
	if strings.TrimSpace(subject) == "" {
		return FederatedIdentity{}, fmt.Errorf("%w: empty %s subject", domain.ErrInvalidRequest, provider)
	}
	if secret == "" {
		return FederatedIdentity{}, fmt.Errorf("%w: %s secret is not configured", domain.ErrConfigMissing, provider)
	}
	return FederatedIdentity{
		Provider: provider,
		Subject:  subject,
		Email:    provider + "_" + subject + "@" + syntheticDomain,
		Password: DerivePassword(subject, secret),
	}, nil
}

// DerivePassword is lowercase hex HMAC-SHA256(key=secret, message=subject).
func DerivePassword(subject, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subject))
	return hex.EncodeToString(mac.Sum(nil))
}
