package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"workshop-backend/aliyun"
	"workshop-backend/config"
	"workshop-backend/domain"
	"workshop-backend/middlewares"
)

// RoleAssumer is satisfied by *aliyun.STSClient.
type RoleAssumer interface {
	AssumeRole(ctx context.Context, roleArn, sessionName string, duration time.Duration) (*aliyun.Credentials, error)
}

var allowedOperations = []string{"PutObject", "GetObject", "ListObjects"}

type STSController struct {
	sts RoleAssumer
	oss config.OSSConfig
}

func NewSTSController(sts RoleAssumer, oss config.OSSConfig) *STSController {
	return &STSController{sts: sts, oss: oss}
}

type stsRequest struct {
	AppSlug string `json:"appSlug" validate:"omitempty,max=64,excludesall=/"`
	Env     string `json:"env" validate:"omitempty,oneof=test prod"`
}

// Issue handles POST /api/get-oss-sts.
func (h *STSController) Issue(c *fiber.Ctx) error {
	var req stsRequest
	if len(c.Body()) > 0 {
		if err := middlewares.BindAndValidate(c, &req); err != nil {
			return err
		}
	}
	if req.AppSlug == "" {
		req.AppSlug = "default"
	}
	if req.Env == "" {
		req.Env = "test"
	}

	userID := middlewares.UserID(c)
	creds, err := h.sts.AssumeRole(c.UserContext(), h.oss.RoleArn, sessionName(userID), h.oss.Duration)
	if errors.Is(err, domain.ErrUpstreamFailed) {
		log.Error().Err(err).Str("user_id", userID).Msg("assume role failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to get STS token")
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"accessKeyId":       creds.AccessKeyID,
		"accessKeySecret":   creds.AccessKeySecret,
		"securityToken":     creds.SecurityToken,
		"expiration":        creds.Expiration,
		"bucket":            h.oss.Bucket,
		"endpoint":          h.oss.Endpoint,
		"region":            h.oss.Region,
		"pathPrefix":        fmt.Sprintf("%s/users/%s/%s/", req.Env, userID, req.AppSlug),
		"allowedOperations": allowedOperations,
	})
}

func sessionName(userID string) string {
	if len(userID) > 8 {
		userID = userID[:8]
	}
	return "flutter-" + userID
}
