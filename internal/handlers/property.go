package handlers

import (
	applog "estatehub/internal/logger"
	"estatehub/internal/services/property"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PropertyHandler struct {
	properties property.Service
	logger     *zap.Logger
}

func NewPropertyHandler(properties property.Service, logger *zap.Logger) *PropertyHandler {
	return &PropertyHandler{properties: properties, logger: applog.OrNop(logger)}
}

func (h *PropertyHandler) Create(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var input property.CreateInput
	if err := bind(c, &input); err != nil {
		return respondError(c, h.logger, err)
	}
	p, err := h.properties.Create(c.UserContext(), claims.UserID, input)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, p)
}

func (h *PropertyHandler) List(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)
	q := property.Query{
		Location: c.Query("location"),
		Status:   c.Query("status"),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	if c.Query("mine") == "true" {
		claims, err := claimsFrom(c)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		q.AgentID = claims.UserID
	}

	page, err := h.properties.List(c.UserContext(), q)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, utils.NewPaginatedResponse(page.Items, page.Total, p))
}

func (h *PropertyHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	p, err := h.properties.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, p)
}
