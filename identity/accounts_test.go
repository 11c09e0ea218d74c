package identity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"workshop-backend/domain"
	"workshop-backend/mocks"
	"workshop-backend/models"
	"workshop-backend/session"
)

func init() {
	models.PasswordCost = bcrypt.MinCost
}

func newTestAccounts(t *testing.T) (*Accounts, *mocks.MockUserRepository, *session.Issuer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	issuer, err := session.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return NewAccounts(repo, issuer), repo, issuer
}

func storedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	u := &models.User{ID: "user-1", Email: email, Provider: ProviderWeChat, Metadata: []byte(`{"wechat_openid":"o1"}`)}
	require.NoError(t, u.SetPassword(password))
	return u
}

func TestAccounts_SignIn(t *testing.T) {
	ctx := context.Background()
	email := "wechat_o1@rocket-workshop.anonymous"

	testCases := []struct {
		name     string
		found    *models.User
		findErr  error
		password string
		wantErr  error
	}{
		{name: "happy_case", found: storedUser(t, email, "pw"), password: "pw"},
		{name: "unknown_email", found: nil, password: "pw", wantErr: domain.ErrUserNotFound},
		{name: "wrong_password", found: storedUser(t, email, "pw"), password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "repository_error", findErr: assert.AnError, password: "pw", wantErr: assert.AnError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			accounts, repo, issuer := newTestAccounts(t)
			repo.EXPECT().FindByEmail(gomock.Any(), email).Return(tc.found, tc.findErr)

			sess, err := accounts.SignIn(ctx, "  wechat_o1@Rocket-Workshop.anonymous ", tc.password)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bearer", sess.TokenType)
			assert.Equal(t, "user-1", sess.User.ID)
			assert.Equal(t, "o1", sess.User.Metadata["wechat_openid"])

			claims, err := issuer.Parse(sess.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.Subject)
		})
	}
}

func TestAccounts_Create(t *testing.T) {
	accounts, repo, _ := newTestAccounts(t)

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		assert.Equal(t, "wechat_o1@rocket-workshop.anonymous", u.Email)
		assert.Equal(t, ProviderWeChat, u.Provider)
		assert.Equal(t, "o1", u.Subject)
		require.NotNil(t, u.Phone)
		assert.Equal(t, "+8613800138000", *u.Phone)
		assert.NoError(t, u.ComparePassword("derived"))

		var meta map[string]any
		require.NoError(t, json.Unmarshal(u.Metadata, &meta))
		assert.Equal(t, "WeChat User", meta["full_name"])
		return nil
	})

	err := accounts.Create(context.Background(), NewAccount{
		Email:    "wechat_o1@rocket-workshop.anonymous",
		Password: "derived",
		Phone:    "+8613800138000",
		Provider: ProviderWeChat,
		Subject:  "o1",
		Metadata: map[string]any{"full_name": "WeChat User"},
	})
	require.NoError(t, err)
}

func TestAccounts_CreateDuplicate(t *testing.T) {
	accounts, repo, _ := newTestAccounts(t)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrDuplicate)

	err := accounts.Create(context.Background(), NewAccount{Email: "a@b.c", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestAccounts_CreateDuplicateByIndex(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"email_taken", &domain.DuplicateError{Constraint: models.UserEmailIndex}, domain.ErrAlreadyRegistered},
		{"unnamed_index", &domain.DuplicateError{}, domain.ErrAlreadyRegistered},
		{"phone_taken", &domain.DuplicateError{Constraint: models.UserPhoneIndex}, domain.ErrConflict},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			accounts, repo, _ := newTestAccounts(t)
			repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(tc.err)

			err := accounts.Create(context.Background(), NewAccount{Email: "a@b.c", Password: "pw", Phone: "+8613800138000"})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAccounts_SubjectCaseIsKept(t *testing.T) {
	accounts, repo, _ := newTestAccounts(t)
	repo.EXPECT().FindByEmail(gomock.Any(), "wechat_oAbC@rocket-workshop.anonymous").Return(nil, nil)

	_, err := accounts.SignIn(context.Background(), "wechat_oAbC@ROCKET-workshop.anonymous", "pw")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAccounts_CreateDefaultsProvider(t *testing.T) {
	accounts, repo, _ := newTestAccounts(t)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		assert.Equal(t, "email", u.Provider)
		assert.Nil(t, u.Phone)
		assert.Empty(t, u.Metadata)
		return nil
	})
	require.NoError(t, accounts.Create(context.Background(), NewAccount{Email: "a@b.c", Password: "pw"}))
}
