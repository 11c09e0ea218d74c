package middlewares

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-backend/domain"
)

func TestErrorHandler(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"fiber_error", fiber.NewError(fiber.StatusMethodNotAllowed, "nope"), 405, "nope"},
		{"invalid_request", fmt.Errorf("%w: missing phone", domain.ErrInvalidRequest), 400, "invalid request: missing phone"},
		{"conflict", domain.ErrConflict, 400, domain.ErrConflict.Error()},
		{"upstream_rejected", domain.ErrUpstreamRejected, 400, domain.ErrUpstreamRejected.Error()},
		{"upstream_failed", fmt.Errorf("%w: AssumeRole: code NoPermission", domain.ErrUpstreamFailed), 500, "upstream service error"},
		{"invalid_credentials", domain.ErrInvalidCredentials, 401, domain.ErrInvalidCredentials.Error()},
		{"config_missing", fmt.Errorf("%w: SMS keys", domain.ErrConfigMissing), 500, "server not configured"},
		{"unreachable", fmt.Errorf("%w: dial tcp 10.0.0.1", domain.ErrUpstreamUnreachable), 500, "upstream service unavailable"},
		{"unknown", errors.New("pq: secret detail"), 500, "internal server error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(c *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.wantError, body["error"])
		})
	}
}

func TestErrorHandler_ValidationErrors(t *testing.T) {
	type dto struct {
		Phone string `json:"phone" validate:"required"`
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/", func(c *fiber.Ctx) error {
		var in dto
		return BindAndValidate(c, &in)
	})

	req := httptest.NewRequest("POST", "/", stringsReader(`{"phone":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var body struct {
		Error  string            `json:"error"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "required", body.Errors["Phone"])
}

func TestBindAndValidate_BadJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/", func(c *fiber.Ctx) error {
		var in struct{}
		return BindAndValidate(c, &in)
	})
	req := httptest.NewRequest("POST", "/", stringsReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
