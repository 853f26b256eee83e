package handlers

import (
	"context"

	applog "estatehub/internal/logger"
	"estatehub/internal/services/credit"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ReconcileRunner runs one reconcile pass.
type ReconcileRunner interface {
	RunOnce(ctx context.Context) (*credit.ReconcileReport, error)
}

type AdminHandler struct {
	credits    credit.Service
	reconciler ReconcileRunner
	logger     *zap.Logger
}

func NewAdminHandler(credits credit.Service, reconciler ReconcileRunner, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{credits: credits, reconciler: reconciler, logger: applog.OrNop(logger)}
}

func (h *AdminHandler) CreateBundle(c *fiber.Ctx) error {
	var input credit.BundleInput
	if err := bind(c, &input); err != nil {
		return respondError(c, h.logger, err)
	}
	bundle, err := h.credits.CreateBundle(c.UserContext(), input)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, bundle)
}

func (h *AdminHandler) UpdateBundle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var input credit.BundleUpdate
	if err := bind(c, &input); err != nil {
		return respondError(c, h.logger, err)
	}
	bundle, err := h.credits.UpdateBundle(c.UserContext(), id, input)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, bundle)
}

func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconciler.RunOnce(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, report)
}
