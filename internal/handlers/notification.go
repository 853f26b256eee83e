package handlers

import (
	"context"

	applog "estatehub/internal/logger"
	"estatehub/internal/services/notification"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Inbox reads and acknowledges stored notifications.
type Inbox interface {
	List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) (*notification.Page, error)
	MarkRead(ctx context.Context, userID, id uint) error
}

type NotificationHandler struct {
	inbox  Inbox
	logger *zap.Logger
}

func NewNotificationHandler(inbox Inbox, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, logger: applog.OrNop(logger)}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	p := utils.GetPagination(c, 1, 20)
	page, err := h.inbox.List(c.UserContext(), claims.UserID, c.QueryBool("unread"), p.Page, p.Limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, utils.NewPaginatedResponse(page.Items, page.Total, p))
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.inbox.MarkRead(c.UserContext(), claims.UserID, id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, fiber.Map{"id": id, "read": true})
}
