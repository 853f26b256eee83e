package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories/cache"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconcile settles purchases whose webhook and callback never arrived.
// Purchases older than the expiry window that the provider still reports as
// pending are failed with reason "expired".
func (s *service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	started := s.now()
	report := &ReconcileReport{}

	pending, err := s.store.Ledger().ListPending(ctx, models.TransactionTypeCreditPurchase,
		started.Add(-s.config.ReconcileMinAge), s.config.ReconcileBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending purchases: %w", err)
	}

	expireBefore := started.Add(-s.config.ReconcileExpireAfter)
	for i := range pending {
		if err := ctx.Err(); err != nil {
			break
		}
		tx := &pending[i]
		report.Checked++

		res, err := s.Settle(ctx, tx.Reference, SourceReconcile)
		switch {
		case res != nil && res.Outcome == OutcomeSettled:
			report.Settled++
		case res != nil && res.Outcome == OutcomePaymentFailed:
			report.Failed++
		case res != nil && res.Outcome == OutcomeAlreadySettled:
		case errors.Is(err, apperrors.ErrPaymentPending) && tx.CreatedAt.Before(expireBefore):
			// Only a provider that answered "pending" past the window expires a
			// purchase. Outages and unknown gateways leave it for a later tick.
			if _, ferr := s.failPurchase(ctx, tx, "expired", apperrors.ErrTransactionFailed); ferr != nil &&
				!errors.Is(ferr, apperrors.ErrTransactionFailed) {
				s.logger.Error("failed to expire purchase", zap.String("reference", tx.Reference), zap.Error(ferr))
				continue
			}
			report.Expired++
		default:
			report.Pending++
			if err != nil {
				s.logger.Debug("purchase still unsettled", zap.String("reference", tx.Reference), zap.Error(err))
			}
		}
	}

	report.Duration = time.Since(started).String()
	s.metrics.RecordReconcile(report)
	if report.Checked > 0 {
		s.logger.Info("reconcile finished",
			zap.Int("checked", report.Checked),
			zap.Int("settled", report.Settled),
			zap.Int("failed", report.Failed),
			zap.Int("expired", report.Expired),
			zap.Int("pending", report.Pending))
	}
	return report, nil
}

// Reconciler runs Reconcile on a cron schedule. A shared lock keeps a tick
// to one instance when several servers run.
type Reconciler struct {
	service  Service
	locker   Locker
	schedule string
	lockTTL  time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewReconciler(service Service, locker Locker, schedule string, logger *zap.Logger) *Reconciler {
	if service == nil {
		panic("credit service is required")
	}
	if locker == nil {
		locker = cache.Noop{}
	}
	if schedule == "" {
		schedule = "@every 5m"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		service:  service,
		locker:   locker,
		schedule: schedule,
		lockTTL:  4 * time.Minute,
		logger:   logger.Named("reconciler"),
		cron:     cron.New(),
	}
}

func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.lockTTL)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("scheduled reconcile failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Info("reconciler scheduled", zap.String("schedule", r.schedule))
	return nil
}

// Stop waits for a running tick to finish or ctx to expire.
func (r *Reconciler) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce reconciles under the shared lock. The report is marked Skipped
// when another instance holds it.
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	token := uuid.NewString()
	ok, err := r.locker.AcquireLock(ctx, cache.ReconcileLockKey, token, r.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.logger.Debug("reconcile already running elsewhere")
		return &ReconcileReport{Skipped: true}, nil
	}
	defer func() {
		if err := r.locker.ReleaseLock(context.WithoutCancel(ctx), cache.ReconcileLockKey, token); err != nil {
			r.logger.Warn("failed to release reconcile lock", zap.Error(err))
		}
	}()

	return r.service.Reconcile(ctx)
}
