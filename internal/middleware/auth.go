// Package middleware provides HTTP middleware components for the application.
package middleware

import (
	"context"
	"strings"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Authenticator resolves an access token to the caller's claims.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
}

// AuthMiddleware handles JWT token validation and user authentication.
type AuthMiddleware struct {
	auth   Authenticator
	logger *zap.Logger
}

func NewAuthMiddleware(auth Authenticator, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{auth: auth, logger: logger.Named("auth")}
}

// Handler validates the Bearer token and stores the claims in Locals.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}

	claims, err := m.auth.Authenticate(c.UserContext(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		if de, ok := apperrors.As(err); ok {
			return utils.Fail(c, de.Status, de.Code, de.Message)
		}
		m.logger.Error("authentication failed", zap.Error(err))
		return utils.Unauthorized(c, "invalid token")
	}

	c.Locals(utils.LocalClaims, claims)
	c.Locals(utils.LocalUserID, claims.UserID)
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.GetUserClaims(c)
		if err != nil {
			return utils.Unauthorized(c, "unauthorized")
		}
		if claims.Role == models.RoleAdmin || claims.HasPermission(permission) {
			return c.Next()
		}
		return utils.Forbidden(c, "insufficient permissions")
	}
}

// RequireRole admits callers whose role is one of roles. Admins always pass.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.GetUserClaims(c)
		if err != nil {
			return utils.Unauthorized(c, "unauthorized")
		}
		if claims.Role == models.RoleAdmin {
			return c.Next()
		}
		for _, r := range roles {
			if claims.Role == r {
				return c.Next()
			}
		}
		return utils.Forbidden(c, "insufficient permissions")
	}
}
