package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	apperrors "estatehub/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"domain error", apperrors.ErrAlreadyUnlocked, 400, "ALREADY_UNLOCKED", "interest is already unlocked"},
		{"wrapped domain error", fmt.Errorf("unlock: %w", apperrors.ErrNotPropertyOwner), 403, "NOT_PROPERTY_OWNER", "you do not own this property"},
		{"custom message", apperrors.ErrInsufficientCredits.WithMessage("need 5, have 1"), 400, "INSUFFICIENT_CREDITS", "need 5, have 1"},
		{"fiber error", fiber.ErrRequestEntityTooLarge, 413, "HTTP_ERROR", "Request Entity Too Large"},
		{"unknown error", errors.New("pq: connection refused"), 500, "INTERNAL_ERROR", "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return respondError(c, zap.NewNop(), tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
				Code    string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestParamID(t *testing.T) {
	app := fiber.New()
	app.Get("/:id", func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return respondError(c, zap.NewNop(), err)
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for path, status := range map[string]int{"/12": 200, "/0": 400, "/abc": 400, "/-3": 400} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)
	}
}
