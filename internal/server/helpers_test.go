package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"postId", "post ID"},
		{"commentId", "comment ID"},
		{"parentCommentId", "parent comment ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{models.NewNotFoundError("Post", 1), http.StatusNotFound},
		{models.NewNotEligibleError("paid"), http.StatusConflict},
		{models.NewInvalidTransitionError(models.VerificationApproved, models.ActionApprove), http.StatusConflict},
		{models.NewConflictError("retry", context.DeadlineExceeded), http.StatusConflict},
		{models.NewInvalidParentError("gone"), http.StatusBadRequest},
		{models.NewValidationError("bad"), http.StatusBadRequest},
		{models.NewUnauthorizedError("who"), http.StatusUnauthorized},
		{models.NewForbiddenError("no"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(models.ErrorCode(tt.err), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesInternalCauses(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respondError(c, errors.New("pq: password authentication failed"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.NotContains(t, body.Error, "password")
	assert.Empty(t, body.Details)
}

func TestParsePage(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePage(c)
		return c.JSON(fiber.Map{"page": p.Page, "limit": p.Limit})
	})

	tests := []struct {
		query string
		page  float64
		limit float64
	}{
		{"", 1, 20},
		{"?page=3&limit=5", 3, 5},
		{"?page=-2&limit=1000", 1, 100},
		{"?page=abc", 1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.page, body["page"])
			assert.Equal(t, tt.limit, body["limit"])
		})
	}
}

func TestSign(t *testing.T) {
	body := []byte(`{"providerId":"pi_1","amount":5}`)
	sig := Sign("secret", body)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Sign("secret", body))
	assert.NotEqual(t, sig, Sign("other", body))
}
