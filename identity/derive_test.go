package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-backend/domain"
)

func TestDerive_Deterministic(t *testing.T) {
	a, err := Derive(ProviderWeChat, "openid123", "appSecretXYZ", "rocket-workshop.anonymous")
	require.NoError(t, err)
	b, err := Derive(ProviderWeChat, "openid123", "appSecretXYZ", "rocket-workshop.anonymous")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "wechat_openid123@rocket-workshop.anonymous", a.Email)
	assert.Equal(t, "9ff1acabee5d8897566f0ce6a34b5efd395f50d8754aaa12a956a636a8170562", a.Password)
	assert.Equal(t, ProviderWeChat, a.Provider)
	assert.Equal(t, "openid123", a.Subject)
}

func TestDerive_DistinctSubjects(t *testing.T) {
	a, err := Derive(ProviderWeChat, "openid123", "appSecretXYZ", "x.test")
	require.NoError(t, err)
	b, err := Derive(ProviderWeChat, "openid124", "appSecretXYZ", "x.test")
	require.NoError(t, err)

	assert.NotEqual(t, a.Email, b.Email)
	assert.NotEqual(t, a.Password, b.Password)
	assert.Equal(t, "3e99bfe2ddf8a63a736ec39effb851c8b40877791d60e21cc00f9c91c99ffa82", b.Password)
}

func TestDerive_SecretChangesPassword(t *testing.T) {
	a, _ := Derive(ProviderWeChat, "openid123", "secret-a", "x.test")
	b, _ := Derive(ProviderWeChat, "openid123", "secret-b", "x.test")
	assert.Equal(t, a.Email, b.Email)
	assert.NotEqual(t, a.Password, b.Password)
}

func TestDerive_Rejects(t *testing.T) {
	_, err := Derive(ProviderWeChat, "openid123", "", "x.test")
	assert.ErrorIs(t, err, domain.ErrConfigMissing)

	_, err = Derive(ProviderWeChat, " ", "secret", "x.test")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
