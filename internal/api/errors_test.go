package api

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"krishi-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingApp(verbose bool, err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(verbose)})
	app.Get("/", func(c *fiber.Ctx) error { return err })
	return app
}

func get(t *testing.T, app *fiber.App) (int, Envelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation("bad", map[string]string{"phone": "is required"}), fiber.StatusBadRequest},
		{"state guard", apperr.StateGuard("listing is %s", "sold"), fiber.StatusBadRequest},
		{"authentication", apperr.Authentication("login"), fiber.StatusUnauthorized},
		{"authorization", apperr.Authorization("not yours"), fiber.StatusForbidden},
		{"not found", apperr.NotFound("missing"), fiber.StatusNotFound},
		{"conflict", apperr.Conflict("duplicate %s", "phone"), fiber.StatusConflict},
		{"fiber error", fiber.NewError(fiber.StatusTeapot, "teapot"), fiber.StatusTeapot},
		{"plain error", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := get(t, failingApp(false, tt.err))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, StatusFor(tt.err))
			assert.False(t, env.Success)
		})
	}
}

func TestErrorHandlerKeepsFieldsAndMessage(t *testing.T) {
	_, env := get(t, failingApp(false, apperr.Validation("Validation failed", map[string]string{"phone": "is required"})))
	assert.Equal(t, "Validation failed", env.Message)
	assert.Equal(t, "is required", env.Fields["phone"])

	_, env = get(t, failingApp(false, fiber.NewError(fiber.StatusTeapot, "teapot")))
	assert.Equal(t, "teapot", env.Message)
}

func TestErrorHandlerHidesDetailUnlessVerbose(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := apperr.Unexpected("Failed to load listings", cause)

	status, env := get(t, failingApp(false, err))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Failed to load listings", env.Message)
	assert.Empty(t, env.Error)

	_, env = get(t, failingApp(true, err))
	assert.Contains(t, env.Error, "connection refused")

	_, env = get(t, failingApp(false, cause))
	assert.Equal(t, "Internal server error", env.Message)
	assert.Empty(t, env.Error)
}

func TestParseRejectsMalformedBody(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(false)})
	app.Post("/", func(c *fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := Parse(c, &body); err != nil {
			return err
		}
		return OK(c, "", body.Name)
	})

	req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
