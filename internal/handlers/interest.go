package handlers

import (
	applog "estatehub/internal/logger"
	"estatehub/internal/models"
	"estatehub/internal/services/interest"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type InterestHandler struct {
	interests interest.Service
	logger    *zap.Logger
}

func NewInterestHandler(interests interest.Service, logger *zap.Logger) *InterestHandler {
	return &InterestHandler{interests: interests, logger: applog.OrNop(logger)}
}

func (h *InterestHandler) Create(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var input struct {
		PropertyID uint   `json:"property_id" validate:"required"`
		Message    string `json:"message" validate:"max=1000"`
	}
	if err := bind(c, &input); err != nil {
		return respondError(c, h.logger, err)
	}
	in, err := h.interests.Express(c.UserContext(), claims.UserID, input.PropertyID, input.Message)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, in)
}

// List returns the caller's interests: received ones for agents, sent ones
// for seekers.
func (h *InterestHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var views []interest.View
	if claims.Role == models.RoleAgent || claims.Role == models.RoleAdmin {
		views, err = h.interests.ListForAgent(c.UserContext(), claims.UserID)
	} else {
		views, err = h.interests.ListForSeeker(c.UserContext(), claims.UserID)
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, views)
}

func (h *InterestHandler) Get(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := paramID(c, "interestId")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	v, err := h.interests.Get(c.UserContext(), id, claims.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, v)
}

func (h *InterestHandler) Unlock(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := paramID(c, "interestId")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	res, err := h.interests.Unlock(c.UserContext(), id, claims.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, res)
}
