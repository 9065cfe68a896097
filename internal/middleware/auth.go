// Package middleware provides authentication, logging, rate limiting, tracing and
// metrics middleware for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"atelier/internal/config"
	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Claims is the authenticated identity extracted from a bearer token.
type Claims struct {
	UserID uint
	Role   string
}

// IsModerator reports whether the identity may make moderation decisions.
func (c Claims) IsModerator() bool {
	return c.Role == RoleModerator || c.Role == RoleAdmin
}

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens issued by the identity service.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewAuthenticator builds an Authenticator from the JWT settings in cfg.
func NewAuthenticator(cfg *config.Config) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
	}
}

// Parse validates the token and returns its claims.
func (a *Authenticator) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	var tc tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &tc, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID, err := strconv.ParseUint(tc.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid subject claim")
	}

	role := tc.Role
	if role == "" {
		role = RoleUser
	}
	return &Claims{UserID: uint(userID), Role: role}, nil
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get("Authorization"))
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func storeClaims(c *fiber.Ctx, claims *Claims) {
	c.Locals("userID", claims.UserID)
	c.Locals("role", claims.Role)
	ctx := context.WithValue(c.UserContext(), UserIDKey, claims.UserID)
	c.SetUserContext(ctx)
}

// Required enforces a valid bearer token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := a.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		storeClaims(c, claims)
		return c.Next()
	}
}

// Optional attaches the identity when a valid token is present and continues either way.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := a.Parse(tokenString); err == nil {
				storeClaims(c, claims)
			}
		}
		return c.Next()
	}
}

// ModeratorRequired rejects callers without a moderator role. It must run after Required.
func ModeratorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentClaims(c).IsModerator() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Moderator access required"))
		}
		return c.Next()
	}
}

// CurrentClaims returns the identity stored by Required or Optional; zero when anonymous.
func CurrentClaims(c *fiber.Ctx) Claims {
	var claims Claims
	if uid, ok := c.Locals("userID").(uint); ok {
		claims.UserID = uid
	}
	if role, ok := c.Locals("role").(string); ok {
		claims.Role = role
	}
	return claims
}
