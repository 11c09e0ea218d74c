package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"workshop-backend/middlewares"
)

// newApp mounts handler at POST /t behind a stub auth step that trusts X-Test-User.
func newApp(handler fiber.Handler, caller middlewares.CallerKind) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middlewares.ErrorHandler})
	app.Post("/t", func(c *fiber.Ctx) error {
		c.Locals("userID", c.Get("X-Test-User"))
		c.Locals("caller", caller)
		return c.Next()
	}, handler)
	return app
}

func post(t *testing.T, app *fiber.App, user, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/t", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}
