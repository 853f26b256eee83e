package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"
)

// StripeSignatureHeader carries the Stripe webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	CancelURL     string
}

// checkoutSessions is the subset of the stripe checkout session client used here.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Stripe drives hosted Checkout Sessions. The session id is the provider
// handle; our reference travels as client_reference_id.
type Stripe struct {
	sessions      checkoutSessions
	configured    bool
	webhookSecret string
	cancelURL     string
}

func NewStripe(cfg StripeConfig) *Stripe {
	return &Stripe{
		sessions: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.SecretKey,
		},
		configured:    cfg.SecretKey != "",
		webhookSecret: cfg.WebhookSecret,
		cancelURL:     cfg.CancelURL,
	}
}

func (s *Stripe) Name() string { return GatewayStripe }

func (s *Stripe) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	description := req.Description
	if description == "" {
		description = "Credits " + req.Reference
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID:  stripe.String(req.Reference),
		SuccessURL:         stripe.String(withReference(req.CallbackURL, req.Reference)),
		CancelURL:          stripe.String(s.cancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
			},
		}},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("reference", req.Reference)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &InitializeResult{
		AuthorizationURL: sess.URL,
		AccessCode:       sess.ID,
		Reference:        sess.ID,
	}, nil
}

func (s *Stripe) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(reference, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	res := &VerifyResult{
		Status:    stripeStatus(sess),
		Amount:    sess.AmountTotal,
		Currency:  strings.ToUpper(string(sess.Currency)),
		Reference: sess.ClientReferenceID,
		GatewayID: sess.ID,
		Channel:   "card",
		Metadata:  sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		res.GatewayID = sess.PaymentIntent.ID
	}
	if res.Status == StatusSuccess {
		now := time.Now().UTC()
		res.PaidAt = &now
	}
	return res, nil
}

// ParseWebhook maps checkout.session.completed onto charge.success with our
// reference taken from client_reference_id.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		if isStripeSignatureError(err) {
			return nil, ErrInvalidSignature
		}
		// Authentic but unusable, e.g. an API version this SDK does not speak.
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out := &WebhookEvent{Event: string(event.Type)}
	if event.Type != "checkout.session.completed" || event.Data == nil {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: malformed checkout session: %v", ErrUpstream, err)
	}
	out.Event = EventChargeSuccess
	out.Reference = sess.ClientReferenceID
	out.Amount = sess.AmountTotal
	out.Currency = strings.ToUpper(string(sess.Currency))
	return out, nil
}

func isStripeSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func stripeStatus(sess *stripe.CheckoutSession) string {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return StatusSuccess
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return StatusAbandoned
	default:
		return StatusPending
	}
}

func withReference(callback, reference string) string {
	u, err := url.Parse(callback)
	if err != nil || callback == "" {
		return callback
	}
	q := u.Query()
	q.Set("reference", reference)
	u.RawQuery = q.Encode()
	return u.String()
}
