package middlewares

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"workshop-backend/session"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	localUserID = "userID"
	localCaller = "caller"

	// ServiceUserID is the caller id of requests authenticated with the service key.
	ServiceUserID = "test-user"
)

// CallerKind tells service-key calls from user-token calls.
type CallerKind string

const (
	CallerService CallerKind = "service"
	CallerUser    CallerKind = "user"
)

// RequireAuth accepts a Bearer service key or a valid user token and
// populates c.Locals("userID").
func RequireAuth(issuer *session.Issuer, serviceKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(authHeader)
		if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
			return fiber.NewError(fiber.StatusUnauthorized, "missing/invalid Authorization header")
		}
		raw := strings.TrimSpace(h[len(bearerPrefix):])
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
		}

		if serviceKey != "" && subtle.ConstantTimeCompare([]byte(raw), []byte(serviceKey)) == 1 {
			c.Locals(localUserID, ServiceUserID)
			c.Locals(localCaller, CallerService)
			return c.Next()
		}

		claims, err := issuer.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(localUserID, claims.Subject)
		c.Locals(localCaller, CallerUser)
		return c.Next()
	}
}

// UserID returns the authenticated caller id, or "" on public routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// Caller returns how the request authenticated.
func Caller(c *fiber.Ctx) CallerKind {
	kind, _ := c.Locals(localCaller).(CallerKind)
	return kind
}
