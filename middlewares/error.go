package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"workshop-backend/domain"
)

// ErrorHandler centralizes error responses. Bodies are always {"error": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Fiber errors (use their status code + message)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	// 2) Validation errors (400 + per-field info)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"errors": out,
		})
	}

	status := StatusFor(err)
	if status < fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	// 3) Server-side failures: details stay in the logs.
	log.Error().Err(err).
		Str("path", c.Path()).
		Str("request_id", requestID(c)).
		Msg("request failed")
	msg := "internal server error"
	switch {
	case errors.Is(err, domain.ErrConfigMissing):
		msg = "server not configured"
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		msg = "upstream service unavailable"
	case errors.Is(err, domain.ErrUpstreamFailed):
		msg = "upstream service error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrUpstreamRejected):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
