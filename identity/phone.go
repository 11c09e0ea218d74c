package identity

import (
	"context"
	"fmt"
	"strings"

	"workshop-backend/domain"
	"workshop-backend/session"
	"workshop-backend/utils"
)

// ProviderPhoneTest tags accounts created by the debug phone login.
const ProviderPhoneTest = "phone_test"

const testEmailDomain = "test.rocket"

// PhoneTestIdentity derives the fixed test credentials of a phone number.
// These are predictable by construction and must only be reachable from debug routes.
func PhoneTestIdentity(phone string) (FederatedIdentity, string, error) {
	intl := utils.InternationalCNPhone(phone)
	digits := strings.TrimPrefix(intl, "+")
	if digits == "" {
		return FederatedIdentity{}, "", fmt.Errorf("%w: missing phone", domain.ErrInvalidRequest)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return FederatedIdentity{}, "", fmt.Errorf("%w: phone must be numeric", domain.ErrInvalidRequest)
		}
	}
	return FederatedIdentity{
		Provider: ProviderPhoneTest,
		Subject:  intl,
		Email:    digits + "@" + testEmailDomain,
		Password: "test_" + intl,
	}, intl, nil
}

// PhoneTestLogin signs in (creating on first use) the test account of a phone number.
type PhoneTestLogin struct {
	federator *Federator
}

func NewPhoneTestLogin(federator *Federator) *PhoneTestLogin {
	return &PhoneTestLogin{federator: federator}
}

func (l *PhoneTestLogin) Login(ctx context.Context, phone string) (*session.Session, error) {
	id, intl, err := PhoneTestIdentity(phone)
	if err != nil {
		return nil, err
	}
	return l.federator.Login(ctx, id, Profile{
		Phone: intl,
		Metadata: map[string]any{
			"phone":        intl,
			"is_test_user": true,
		},
	})
}
