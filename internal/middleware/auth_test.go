package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"atelier/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testAuthenticator() *Authenticator {
	return NewAuthenticator(&config.Config{
		JWTSecret:   testSecret,
		JWTIssuer:   "atelier-api",
		JWTAudience: "atelier-client",
	})
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(userID uint, role string, exp time.Duration) jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": "atelier-api",
		"aud": "atelier-client",
		"exp": time.Now().Add(exp).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	return claims
}

func TestAuthenticator_Required(t *testing.T) {
	auth := testAuthenticator()
	app := fiber.New()
	app.Get("/test", auth.Required(), func(c *fiber.Ctx) error {
		claims := CurrentClaims(c)
		return c.JSON(fiber.Map{"userID": claims.UserID, "role": claims.Role})
	})

	wrongIssuer := validClaims(1, "", time.Hour)
	wrongIssuer["iss"] = "someone-else"

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
		expectedRole   string
	}{
		{"happy path defaults role", "Bearer " + signToken(t, validClaims(123, "", time.Hour), testSecret), http.StatusOK, 123, RoleUser},
		{"moderator role", "Bearer " + signToken(t, validClaims(7, RoleModerator, time.Hour), testSecret), http.StatusOK, 7, RoleModerator},
		{"missing header", "", http.StatusUnauthorized, 0, ""},
		{"invalid format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0, ""},
		{"malformed token", "Bearer malformed.token.here", http.StatusUnauthorized, 0, ""},
		{"expired token", "Bearer " + signToken(t, validClaims(123, "", -time.Hour), testSecret), http.StatusUnauthorized, 0, ""},
		{"wrong secret", "Bearer " + signToken(t, validClaims(123, "", time.Hour), "other-secret"), http.StatusUnauthorized, 0, ""},
		{"wrong issuer", "Bearer " + signToken(t, wrongIssuer, testSecret), http.StatusUnauthorized, 0, ""},
		{"zero subject", "Bearer " + signToken(t, validClaims(0, "", time.Hour), testSecret), http.StatusUnauthorized, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body struct {
					UserID uint   `json:"userID"`
					Role   string `json:"role"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedUserID, body.UserID)
				assert.Equal(t, tt.expectedRole, body.Role)
			}
		})
	}
}

func TestAuthenticator_OptionalAndModeratorRequired(t *testing.T) {
	auth := testAuthenticator()
	app := fiber.New()
	app.Get("/whoami", auth.Optional(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": CurrentClaims(c).UserID})
	})
	app.Get("/mod", auth.Required(), ModeratorRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/mod", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(5, RoleUser, time.Hour), testSecret))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for _, role := range []string{RoleModerator, RoleAdmin} {
		req = httptest.NewRequest(http.MethodGet, "/mod", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(5, role, time.Hour), testSecret))
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, role)
	}
}
