package handlers

import (
	"strconv"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/utils"
	"estatehub/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError renders err in the failure envelope. Errors that are not
// domain errors are logged and reported as a generic 500.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	if de, ok := apperrors.As(err); ok {
		return utils.Fail(c, de.Status, de.Code, de.Message)
	}
	if fe, ok := err.(*fiber.Error); ok {
		return utils.Fail(c, fe.Code, "HTTP_ERROR", fe.Message)
	}
	logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return utils.Fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.ErrInvalidInput.WithMessage("invalid request body")
	}
	return validation.Struct(dst)
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.ErrInvalidInput.WithMessage("invalid " + name)
	}
	return uint(id), nil
}

func claimsFrom(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}
