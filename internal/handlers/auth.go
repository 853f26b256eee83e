package handlers

import (
	"time"

	applog "estatehub/internal/logger"
	"estatehub/internal/services/auth"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService   auth.Service
	secureCookies bool
	logger        *zap.Logger
}

func NewAuthHandler(authService auth.Service, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookies: secureCookies, logger: applog.OrNop(logger)}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input auth.RegisterInput
	if err := bind(c, &input); err != nil {
		return respondError(c, h.logger, err)
	}

	res, err := h.authService.Register(c.UserContext(), input)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.setAuthCookies(c, res)
	return utils.Created(c, res)
}

// Login handles user authentication and returns JWT tokens
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := bind(c, &input); err != nil {
		return respondError(c, h.logger, err)
	}

	res, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.setAuthCookies(c, res)
	return utils.Success(c, res)
}

// Refresh accepts the refresh token from the cookie or the body.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.BodyParser(&input)
		refreshToken = input.RefreshToken
	}
	if refreshToken == "" {
		return utils.Unauthorized(c, "refresh token not provided")
	}

	res, err := h.authService.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.setAuthCookies(c, res)
	return utils.Success(c, res)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	user, err := h.authService.GetUserByID(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, auth.NewProfile(user))
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, res *auth.Result) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    res.AccessToken,
		Expires:  time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    res.RefreshToken,
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		Path:     "/api/auth",
	})
}
