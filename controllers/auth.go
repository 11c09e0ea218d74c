package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"workshop-backend/identity"
	"workshop-backend/middlewares"
	"workshop-backend/session"
)

// WeChatAuthenticator is satisfied by *identity.WeChatLogin.
type WeChatAuthenticator interface {
	Login(ctx context.Context, code string) (*identity.LoginResult, error)
}

// PhoneAuthenticator is satisfied by *identity.PhoneTestLogin.
type PhoneAuthenticator interface {
	Login(ctx context.Context, phone string) (*session.Session, error)
}

type AuthController struct {
	wechat WeChatAuthenticator
	phone  PhoneAuthenticator
}

func NewAuthController(wechat WeChatAuthenticator, phone PhoneAuthenticator) *AuthController {
	return &AuthController{wechat: wechat, phone: phone}
}

type wechatLoginRequest struct {
	Code string `json:"code" validate:"required"`
}

// WeChat handles POST /api/auth-wechat.
func (h *AuthController) WeChat(c *fiber.Ctx) error {
	var req wechatLoginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.wechat.Login(c.UserContext(), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":    res.Session.User,
		"session": res.Session,
		"openid":  res.OpenID,
	})
}

type debugLoginRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// DebugLogin handles POST /api/debug-login. Only routed when debug endpoints are enabled.
func (h *AuthController) DebugLogin(c *fiber.Ctx) error {
	var req debugLoginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	sess, err := h.phone.Login(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":    sess.User,
		"session": sess,
	})
}
