package controllers

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"workshop-backend/aliyun"
	"workshop-backend/middlewares"
)

// SMSSender is satisfied by *aliyun.SMSClient.
type SMSSender interface {
	Send(ctx context.Context, phone string, templateParam map[string]string) (*aliyun.SendResult, error)
}

type SMSController struct {
	sender   SMSSender
	echoCode bool
	newCode  func() (string, error)
}

// NewSMSController creates the send-sms handler. echoCode returns the
// verification code in the response and must stay off in production.
func NewSMSController(sender SMSSender, echoCode bool) *SMSController {
	return &SMSController{sender: sender, echoCode: echoCode, newCode: randomCode}
}

type sendSMSRequest struct {
	Phone         string            `json:"phone" validate:"required"`
	TemplateParam map[string]string `json:"templateParam"`
}

// Send handles POST /api/send-sms.
func (h *SMSController) Send(c *fiber.Ctx) error {
	var req sendSMSRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	code := req.TemplateParam["code"]
	if code == "" {
		var err error
		if code, err = h.newCode(); err != nil {
			return fmt.Errorf("generating verification code: %w", err)
		}
	}
	params := map[string]string{}
	for k, v := range req.TemplateParam {
		params[k] = v
	}
	params["code"] = code

	res, err := h.sender.Send(c.UserContext(), req.Phone, params)
	var apiErr *aliyun.APIError
	if errors.As(err, &apiErr) {
		log.Warn().Str("code", apiErr.Code).Str("request_id", apiErr.RequestID).Str("user_id", middlewares.UserID(c)).Msg("sms rejected")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":     fmt.Sprintf("发送失败: %s (%s)", apiErr.Message, apiErr.Code),
			"requestId": apiErr.RequestID,
		})
	}
	if err != nil {
		return err
	}

	out := fiber.Map{
		"success":   true,
		"message":   "发送成功",
		"requestId": res.RequestID,
	}
	if h.echoCode {
		out["code"] = code
	}
	return c.JSON(out)
}

// randomCode returns six uniformly random decimal digits.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
