package payment

import (
	"context"
	"errors"
	"time"
)

// Gateway names
const (
	GatewayPaystack = "paystack"
	GatewayStripe   = "stripe"
)

// Provider-reported payment states
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusPending   = "pending"
)

// EventChargeSuccess is the only webhook event that leads to settlement.
const EventChargeSuccess = "charge.success"

var (
	ErrNotConfigured    = errors.New("payment gateway not configured")
	ErrUpstream         = errors.New("payment gateway request failed")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownGateway   = errors.New("unknown payment gateway")
)

// Gateway is a hosted-checkout payment provider. Amounts are in minor units.
type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	// Verify asks the provider for the state of a payment. reference is the
	// provider handle stored as the transaction's gateway reference.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	// ParseWebhook authenticates payload against signature and decodes it.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type InitializeRequest struct {
	Email       string
	Amount      int64
	Currency    string
	Reference   string
	Description string
	Metadata    map[string]string
	CallbackURL string
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	// Reference is the provider handle used for later verification.
	Reference string
}

type VerifyResult struct {
	Status    string
	Amount    int64
	Currency  string
	Reference string // our reference as echoed by the provider
	GatewayID string
	Channel   string
	PaidAt    *time.Time
	Metadata  map[string]string
}

func (r *VerifyResult) Succeeded() bool { return r.Status == StatusSuccess }

type WebhookEvent struct {
	Event     string
	Reference string
	Amount    int64
	Currency  string
}
