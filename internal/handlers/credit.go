package handlers

import (
	"errors"
	"strings"

	apperrors "estatehub/internal/errors"
	applog "estatehub/internal/logger"
	"estatehub/internal/services/credit"
	"estatehub/internal/services/payment"
	"estatehub/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CreditHandler struct {
	credits credit.Service
	logger  *zap.Logger
}

func NewCreditHandler(credits credit.Service, logger *zap.Logger) *CreditHandler {
	return &CreditHandler{credits: credits, logger: applog.OrNop(logger)}
}

func (h *CreditHandler) Bundles(c *fiber.Ctx) error {
	bundles, err := h.credits.ListBundles(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, bundles)
}

func (h *CreditHandler) Balance(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	balance, err := h.credits.Balance(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, fiber.Map{"credits": balance})
}

func (h *CreditHandler) Transactions(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	p := utils.GetPagination(c, 1, 20)
	page, err := h.credits.Transactions(c.UserContext(), claims.UserID, c.Query("type"), p.Page, p.Limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, utils.NewPaginatedResponse(page.Items, page.Total, p))
}

func (h *CreditHandler) Purchase(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	var input struct {
		BundleID uint   `json:"bundle_id" validate:"required"`
		Gateway  string `json:"gateway" validate:"omitempty,oneof=paystack stripe"`
	}
	if err := bind(c, &input); err != nil {
		return respondError(c, h.logger, err)
	}

	res, err := h.credits.Purchase(c.UserContext(), claims.UserID, input.BundleID, input.Gateway)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, res)
}

// Verify is polled by the client after checkout.
func (h *CreditHandler) Verify(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	res, err := h.credits.Verify(c.UserContext(), claims.UserID, c.Params("reference"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, res)
}

// VerifyInline serves the inline checkout popup, which reports back before
// the provider may have marked the charge final. A still-pending charge is
// answered with 202 so the client keeps polling.
func (h *CreditHandler) VerifyInline(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	res, err := h.credits.Verify(c.UserContext(), claims.UserID, c.Params("reference"))
	if errors.Is(err, apperrors.ErrPaymentPending) {
		return utils.Respond(c, fiber.StatusAccepted, res)
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Success(c, res)
}

// Webhook acknowledges every authentic delivery with 200. Processing errors
// are logged and left to the reconciler; only a bad signature is refused.
func (h *CreditHandler) Webhook(c *fiber.Ctx) error {
	gateway := strings.ToLower(c.Params("gateway", payment.GatewayPaystack))
	signature := c.Get(payment.PaystackSignatureHeader)
	if gateway == payment.GatewayStripe {
		signature = c.Get(payment.StripeSignatureHeader)
	}

	res, err := h.credits.HandleWebhook(c.UserContext(), gateway, c.Body(), signature)
	switch {
	case errors.Is(err, apperrors.ErrInvalidSignature):
		return utils.Fail(c, fiber.StatusUnauthorized, apperrors.ErrInvalidSignature.Code, apperrors.ErrInvalidSignature.Message)
	case errors.Is(err, apperrors.ErrUnknownGateway):
		return respondError(c, h.logger, err)
	case err != nil:
		h.logger.Warn("webhook processing failed", zap.String("gateway", gateway), zap.Error(err))
	}

	out := fiber.Map{"received": true}
	if res != nil {
		out["outcome"] = res.Outcome
	}
	return c.JSON(out)
}

// Callback is where the provider sends the browser after checkout.
func (h *CreditHandler) Callback(c *fiber.Ctx) error {
	reference := c.Query("reference")
	if reference == "" {
		reference = c.Query("trxref")
	}
	redirect, _, err := h.credits.HandleCallback(c.UserContext(), reference)
	if err != nil {
		h.logger.Info("callback settlement incomplete", zap.String("reference", reference), zap.Error(err))
	}
	return c.Redirect(redirect, fiber.StatusFound)
}
