package controllers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"workshop-backend/domain"
	"workshop-backend/identity"
	"workshop-backend/middlewares"
	"workshop-backend/session"
)

type fakeWeChat struct {
	code string
	err  error
}

func (f *fakeWeChat) Login(_ context.Context, code string) (*identity.LoginResult, error) {
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return &identity.LoginResult{
		OpenID: "openid123",
		Session: &session.Session{
			AccessToken: "jwt",
			TokenType:   "bearer",
			User:        session.User{ID: "u1", Email: "wechat_openid123@rocket-workshop.anonymous"},
		},
	}, nil
}

type fakePhone struct {
	phone string
	err   error
}

func (f *fakePhone) Login(_ context.Context, phone string) (*session.Session, error) {
	f.phone = phone
	if f.err != nil {
		return nil, f.err
	}
	return &session.Session{AccessToken: "jwt", User: session.User{ID: "u2", Email: "8613800138000@test.rocket"}}, nil
}

func TestAuth_WeChat(t *testing.T) {
	wx := &fakeWeChat{}
	app := newApp(NewAuthController(wx, nil).WeChat, "")

	status, body := post(t, app, "", `{"code":" abc "}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, "abc", wx.code)
	assert.Equal(t, "openid123", body["openid"])
	assert.Equal(t, "u1", body["user"].(map[string]any)["id"])
	assert.Equal(t, "jwt", body["session"].(map[string]any)["access_token"])
}

func TestAuth_WeChatErrors(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"missing_code", `{}`, nil, 400},
		{"rejected_code", `{"code":"x"}`, fmt.Errorf("%w: errcode 40029", domain.ErrUpstreamRejected), 400},
		{"wrong_password", `{"code":"x"}`, &identity.LoginError{From: identity.SigningIn, Err: domain.ErrInvalidCredentials}, 401},
		{"not_configured", `{"code":"x"}`, domain.ErrConfigMissing, 500},
		{"bad_upstream_body", `{"code":"x"}`, fmt.Errorf("%w: invalid JSON", domain.ErrUpstreamFailed), 500},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newApp(NewAuthController(&fakeWeChat{err: tc.err}, nil).WeChat, "")
			status, body := post(t, app, "", tc.body)
			assert.Equal(t, tc.wantStatus, status)
			assert.Contains(t, body, "error")
		})
	}
}

func TestAuth_DebugLogin(t *testing.T) {
	phone := &fakePhone{}
	app := newApp(NewAuthController(nil, phone).DebugLogin, middlewares.CallerKind(""))

	status, body := post(t, app, "", `{"phone":"13800138000"}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, "13800138000", phone.phone)
	assert.Equal(t, "8613800138000@test.rocket", body["user"].(map[string]any)["email"])
}

func TestAuth_DebugLoginPhoneCollision(t *testing.T) {
	phone := &fakePhone{err: &identity.LoginError{
		From: identity.Creating,
		Err:  fmt.Errorf("%w: uniq_users_phone", domain.ErrConflict),
	}}
	app := newApp(NewAuthController(nil, phone).DebugLogin, middlewares.CallerKind(""))

	status, body := post(t, app, "", `{"phone":"13800138000"}`)
	assert.Equal(t, 400, status)
	assert.Contains(t, body["error"], "uniq_users_phone")
}
