package credit

import (
	"time"

	"estatehub/internal/models"

	"github.com/shopspring/decimal"
)

// Outcome tags the result of a settlement attempt.
type Outcome string

const (
	OutcomeSettled         Outcome = "settled"
	OutcomeAlreadySettled  Outcome = "already_settled"
	OutcomeNotFound        Outcome = "not_found"
	OutcomePaymentFailed   Outcome = "payment_failed"
	OutcomeUpstreamFailure Outcome = "upstream_failure"
)

// Source names the entry point that asked for settlement.
type Source string

const (
	SourceVerify    Source = "verify"
	SourceWebhook   Source = "webhook"
	SourceCallback  Source = "callback"
	SourceReconcile Source = "reconcile"
)

const (
	DefaultCurrency   = "NGN"
	DefaultBalanceTTL = time.Minute
	referencePrefix   = "CRD"
	settleTimeout     = 30 * time.Second
)

type Config struct {
	Currency    string
	CallbackURL string // provider redirect target, our /api/credits/callback
	FrontendURL string
	BundleTTL   time.Duration
	BalanceTTL  time.Duration

	ReconcileMinAge      time.Duration
	ReconcileExpireAfter time.Duration
	ReconcileBatchSize   int
}

type SettlementResult struct {
	Outcome     Outcome             `json:"outcome"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Balance     int                 `json:"balance"`
	Credits     int                 `json:"credits_added"`
}

// Succeeded reports whether the purchase is (now or already) completed.
func (r *SettlementResult) Succeeded() bool {
	return r != nil && (r.Outcome == OutcomeSettled || r.Outcome == OutcomeAlreadySettled)
}

type PurchaseResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Gateway          string `json:"gateway"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Credits          int    `json:"credits"`
}

type TransactionPage struct {
	Items []models.Transaction `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type BundleInput struct {
	Name     string          `json:"name" validate:"required,min=2,max=100"`
	Credits  int             `json:"credits" validate:"required,gt=0"`
	Bonus    int             `json:"bonus" validate:"gte=0"`
	Price    decimal.Decimal `json:"price" validate:"gt=0"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
}

type BundleUpdate struct {
	Name    *string          `json:"name" validate:"omitempty,min=2,max=100"`
	Credits *int             `json:"credits" validate:"omitempty,gt=0"`
	Bonus   *int             `json:"bonus" validate:"omitempty,gte=0"`
	Price   *decimal.Decimal `json:"price" validate:"omitempty,gt=0"`
	Active  *bool            `json:"active"`
}

type ReconcileReport struct {
	Checked  int    `json:"checked"`
	Settled  int    `json:"settled"`
	Failed   int    `json:"failed"`
	Expired  int    `json:"expired"`
	Pending  int    `json:"pending"`
	Skipped  bool   `json:"skipped"`
	Duration string `json:"duration"`
}
