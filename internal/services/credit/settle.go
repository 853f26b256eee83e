package credit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories"
	"estatehub/internal/repositories/cache"
	"estatehub/internal/services/notification"
	"estatehub/internal/services/payment"

	"go.uber.org/zap"
)

// Settle verifies a purchase with its gateway and applies the credits once.
// Concurrent calls for one reference in this process share a single run;
// across processes the row lock and the pending-only transition guarantee a
// single application.
func (s *service) Settle(ctx context.Context, reference string, source Source) (*SettlementResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperrors.ErrMissingRef
	}

	// The run is shared, so it must not die with whichever caller started it.
	v, err, _ := s.settling.Do(reference, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
		defer cancel()
		return s.settle(runCtx, reference, source)
	})
	res, _ := v.(*SettlementResult)
	if res != nil {
		s.metrics.RecordSettlement(string(source), string(res.Outcome))
	}
	return res, err
}

func (s *service) settle(ctx context.Context, reference string, source Source) (*SettlementResult, error) {
	log := s.logger.With(zap.String("reference", reference), zap.String("source", string(source)))

	tx, err := s.store.Ledger().GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return &SettlementResult{Outcome: OutcomeNotFound}, apperrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.Type != models.TransactionTypeCreditPurchase {
		return &SettlementResult{Outcome: OutcomeNotFound}, apperrors.ErrTransactionNotFound
	}

	switch tx.Status {
	case models.TransactionStatusCompleted:
		return s.alreadySettled(ctx, tx)
	case models.TransactionStatusFailed:
		return &SettlementResult{Outcome: OutcomePaymentFailed, Transaction: tx}, apperrors.ErrTransactionFailed
	}

	gw, err := s.gateways.Get(tx.Gateway)
	if err != nil {
		log.Error("transaction references an unknown gateway", zap.String("gateway", tx.Gateway))
		return &SettlementResult{Outcome: OutcomeUpstreamFailure, Transaction: tx}, apperrors.ErrUnknownGateway
	}

	gatewayRef := tx.GatewayReference
	if gatewayRef == "" {
		gatewayRef = tx.Reference
	}
	started := s.now()
	verified, err := gw.Verify(ctx, gatewayRef)
	s.metrics.RecordGatewayCall(gw.Name(), "verify", time.Since(started), err)
	if err != nil {
		log.Warn("payment verification failed", zap.Error(err))
		return &SettlementResult{Outcome: OutcomeUpstreamFailure, Transaction: tx}, apperrors.ErrGatewayUnavailable
	}

	switch verified.Status {
	case payment.StatusSuccess:
	case payment.StatusFailed, payment.StatusAbandoned:
		return s.failPurchase(ctx, tx, "payment_"+verified.Status, apperrors.ErrTransactionFailed)
	default:
		return &SettlementResult{Outcome: OutcomeUpstreamFailure, Transaction: tx}, apperrors.ErrPaymentPending
	}

	if verified.Amount != tx.Amount {
		log.Error("provider amount differs from purchase",
			zap.Int64("expected", tx.Amount),
			zap.Int64("reported", verified.Amount))
		return s.failPurchase(ctx, tx, "amount_mismatch", apperrors.ErrAmountMismatch)
	}

	metadata := tx.Metadata.Merge(map[string]interface{}{
		"gateway_id":    verified.GatewayID,
		"channel":       verified.Channel,
		"settled_via":   string(source),
		"paid_currency": verified.Currency,
	})
	if verified.PaidAt != nil {
		metadata["paid_at"] = verified.PaidAt.UTC().Format(time.RFC3339)
	}

	var (
		balance int
		current *models.Transaction
		applied bool
	)
	err = s.store.ExecuteInTransaction(ctx, func(repo repositories.Store) error {
		locked, err := repo.Ledger().GetByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		current = locked
		if !locked.IsPending() {
			return nil
		}

		changed, err := repo.Ledger().Complete(ctx, locked.ID, metadata, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		balance, err = repo.Users().AdjustCredits(ctx, locked.UserID, locked.Credits)
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		log.Error("settlement transaction failed", zap.Error(err))
		return nil, fmt.Errorf("failed to settle %s: %w", reference, err)
	}

	if !applied {
		if current != nil && current.Status == models.TransactionStatusFailed {
			return &SettlementResult{Outcome: OutcomePaymentFailed, Transaction: current}, apperrors.ErrTransactionFailed
		}
		return s.alreadySettled(ctx, current)
	}

	s.invalidate(ctx, cache.BalanceKey(tx.UserID))
	completed, err := s.store.Ledger().GetByReference(ctx, reference)
	if err != nil {
		completed = tx
	}

	log.Info("credits settled",
		zap.Uint("user_id", tx.UserID),
		zap.Int("credits", tx.Credits),
		zap.Int("balance", balance))

	s.notifier.Send(ctx, notification.Input{
		UserID:  tx.UserID,
		Title:   "Credits added",
		Message: fmt.Sprintf("%d credits have been added to your account. New balance: %d.", tx.Credits, balance),
		Type:    models.NotificationCreditsAdded,
		Metadata: map[string]interface{}{
			"reference": reference,
			"credits":   tx.Credits,
			"balance":   balance,
		},
	})

	return &SettlementResult{
		Outcome:     OutcomeSettled,
		Transaction: completed,
		Balance:     balance,
		Credits:     tx.Credits,
	}, nil
}

func (s *service) alreadySettled(ctx context.Context, tx *models.Transaction) (*SettlementResult, error) {
	balance, err := s.store.Users().GetCredits(ctx, tx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return &SettlementResult{
		Outcome:     OutcomeAlreadySettled,
		Transaction: tx,
		Balance:     balance,
	}, nil
}

// failPurchase moves a pending purchase to failed and tells the buyer. A row
// that was settled concurrently is reported as such instead.
func (s *service) failPurchase(ctx context.Context, tx *models.Transaction, reason string, cause error) (*SettlementResult, error) {
	changed, err := s.store.Ledger().Fail(ctx, tx.ID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	if !changed {
		current, err := s.store.Ledger().GetByReference(ctx, tx.Reference)
		if err == nil && current.IsCompleted() {
			return s.alreadySettled(ctx, current)
		}
	}

	tx.Status = models.TransactionStatusFailed
	tx.FailureReason = reason
	if changed {
		s.logger.Info("purchase failed",
			zap.String("reference", tx.Reference),
			zap.String("reason", reason))
		s.notifier.Send(ctx, notification.Input{
			UserID:   tx.UserID,
			Title:    "Payment failed",
			Message:  "Your credit purchase could not be completed.",
			Type:     models.NotificationPaymentFailed,
			Metadata: map[string]interface{}{"reference": tx.Reference, "reason": reason},
		})
	}
	return &SettlementResult{Outcome: OutcomePaymentFailed, Transaction: tx}, cause
}

func (s *service) Verify(ctx context.Context, userID uint, reference string) (*SettlementResult, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, apperrors.ErrMissingRef
	}
	tx, err := s.store.Ledger().GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return &SettlementResult{Outcome: OutcomeNotFound}, apperrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.UserID != userID {
		return nil, apperrors.ErrForbidden.WithMessage("transaction belongs to another user")
	}
	return s.Settle(ctx, reference, SourceVerify)
}

// HandleWebhook authenticates a provider event and settles charge.success.
// Other event types are acknowledged with a nil result.
func (s *service) HandleWebhook(ctx context.Context, gatewayName string, payload []byte, signature string) (*SettlementResult, error) {
	gw, err := s.gateways.Get(gatewayName)
	if err != nil {
		return nil, apperrors.ErrUnknownGateway
	}

	event, err := gw.ParseWebhook(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			s.logger.Warn("webhook signature rejected", zap.String("gateway", gw.Name()))
			return nil, apperrors.ErrInvalidSignature
		case errors.Is(err, payment.ErrNotConfigured):
			return nil, apperrors.ErrGatewayUnavailable.WithMessage(gw.Name() + " webhooks are not configured")
		default:
			return nil, apperrors.ErrInvalidInput.WithMessage("malformed webhook payload")
		}
	}

	if event.Event != payment.EventChargeSuccess {
		s.logger.Debug("webhook event ignored", zap.String("gateway", gw.Name()), zap.String("event", event.Event))
		return nil, nil
	}
	if event.Reference == "" {
		return nil, apperrors.ErrMissingRef
	}
	return s.Settle(ctx, event.Reference, SourceWebhook)
}

// HandleCallback settles after the provider redirects the browser back and
// returns where the browser should go next.
func (s *service) HandleCallback(ctx context.Context, reference string) (string, *SettlementResult, error) {
	res, err := s.Settle(ctx, reference, SourceCallback)
	return s.redirectURL(reference, res), res, err
}

func (s *service) redirectURL(reference string, res *SettlementResult) string {
	status := "error"
	if res != nil {
		switch res.Outcome {
		case OutcomeSettled, OutcomeAlreadySettled:
			status = "success"
		case OutcomePaymentFailed:
			status = "failed"
		case OutcomeUpstreamFailure:
			status = "pending"
		}
	}

	q := url.Values{}
	q.Set("status", status)
	if reference != "" {
		q.Set("reference", reference)
	}
	return strings.TrimRight(s.config.FrontendURL, "/") + "/credits?" + q.Encode()
}
