package middlewares

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"workshop-backend/models"
)

const maxIdempotencyKeyLen = 128

// IdempotencyStore is implemented by database.IdempotencyStore.
type IdempotencyStore interface {
	Reserve(ctx context.Context, rec *models.IdempotencyKey) (*models.IdempotencyKey, bool, error)
	Complete(ctx context.Context, userID, key string, status int, body []byte) error
	Release(ctx context.Context, userID, key string) error
}

// Idempotency processes Idempotency-Key for mutating HTTP methods. Keys are
// scoped to the authenticated caller, so mount it after RequireAuth.
func Idempotency(store IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		userID := UserID(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "auth context missing")
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body(), userID)
		ctx := c.UserContext()

		// ---- Phase 1: find or reserve
		rec, created, err := store.Reserve(ctx, &models.IdempotencyKey{
			Key:         key,
			RequestHash: reqHash,
			Method:      method,
			Path:        path,
			UserID:      userID,
		})
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("idempotency reserve failed")
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
		}
		if rec.RequestHash != reqHash {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if !created {
			if rec.ResponseStatus != 0 {
				// Completed: replay without running the handler.
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				c.Set("Idempotent-Replayed", "true")
				return c.Status(rec.ResponseStatus).Send(rec.ResponseBody)
			}
			return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is still in progress")
		}

		// ---- Phase 2: run the handler once
		if err := c.Next(); err != nil {
			release(ctx, store, userID, key)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			// Server-side failures stay retryable.
			release(ctx, store, userID, key)
			return nil
		}

		// ---- Phase 3: store the response (best effort)
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		if err := store.Complete(ctx, userID, key, status, blob); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("idempotency complete failed")
		}
		return nil
	}
}

func release(ctx context.Context, store IdempotencyStore, userID, key string) {
	if err := store.Release(ctx, userID, key); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("idempotency release failed")
	}
}

// requestHash is sha256 over method|path|body|user.
func requestHash(method, path string, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
