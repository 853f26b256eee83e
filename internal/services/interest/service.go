package interest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories"
	"estatehub/internal/repositories/cache"
	"estatehub/internal/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type service struct {
	store    repositories.Store
	cache    Cache
	notifier Notifier
	metrics  MetricsCollector
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new interest service
func NewService(store repositories.Store, cacheStore Cache, notifier Notifier, metrics MetricsCollector, logger *zap.Logger) Service {
	if store == nil {
		panic("store is required")
	}
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:    store,
		cache:    cacheStore,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.Named("interest"),
		now:      time.Now,
	}
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, notification.Input) {}

func (s *service) Express(ctx context.Context, seekerID, propertyID uint, message string) (*models.Interest, error) {
	message = strings.TrimSpace(message)
	if len(message) > maxMessageLength {
		s.metrics.RecordInterest(ResultRejected)
		return nil, apperrors.ErrInvalidInput.WithMessage(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}

	property, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, repositories.ErrPropertyNotFound) {
			s.metrics.RecordInterest(ResultRejected)
			return nil, apperrors.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	if property.AgentID == seekerID {
		s.metrics.RecordInterest(ResultRejected)
		return nil, apperrors.ErrInvalidInput.WithMessage("cannot register interest in your own property")
	}

	in := &models.Interest{
		PropertyID: property.ID,
		SeekerID:   seekerID,
		Message:    message,
		Status:     models.InterestStatusPending,
	}
	if err := s.store.Interests().Create(ctx, in); err != nil {
		if errors.Is(err, repositories.ErrDuplicateInterest) {
			s.metrics.RecordInterest(ResultDuplicate)
			return nil, apperrors.ErrDuplicateInterest
		}
		return nil, fmt.Errorf("failed to create interest: %w", err)
	}
	in.Property = property
	s.metrics.RecordInterest(ResultCreated)

	s.notifier.Send(ctx, notification.Input{
		UserID:  property.AgentID,
		Title:   "New interest in your property",
		Message: fmt.Sprintf("A seeker is interested in %q. Unlock the interest to see their contact details.", property.Title),
		Type:    models.NotificationInterestNew,
		Metadata: map[string]interface{}{
			"interest_id": in.ID,
			"property_id": property.ID,
		},
	})
	return in, nil
}

func (s *service) Unlock(ctx context.Context, interestID, agentID uint) (*UnlockResult, error) {
	var (
		unlocked  *models.Interest
		remaining int
	)
	now := s.now()

	err := s.store.ExecuteInTransaction(ctx, func(repo repositories.Store) error {
		in, err := repo.Interests().GetByIDForUpdate(ctx, interestID)
		switch {
		case errors.Is(err, repositories.ErrInterestNotFound):
			return apperrors.ErrInterestNotFound
		case errors.Is(err, repositories.ErrPropertyNotFound):
			return apperrors.ErrPropertyNotFound
		case err != nil:
			return fmt.Errorf("failed to load interest: %w", err)
		}
		if in.Property.AgentID != agentID {
			return apperrors.ErrNotPropertyOwner
		}
		if in.Unlocked {
			return apperrors.ErrAlreadyUnlocked
		}

		balance, err := repo.Users().AdjustCredits(ctx, agentID, -UnlockCost)
		if err != nil {
			if errors.Is(err, repositories.ErrInsufficientCredits) {
				return apperrors.ErrInsufficientCredits.WithMessage(
					fmt.Sprintf("unlocking requires %d credits, you have %d", UnlockCost, balance))
			}
			return fmt.Errorf("failed to debit credits: %w", err)
		}

		id := in.ID
		if err := repo.Ledger().Create(ctx, &models.Transaction{
			UserID:      agentID,
			Type:        models.TransactionTypeCreditSpent,
			Credits:     UnlockCost,
			Status:      models.TransactionStatusCompleted,
			Gateway:     models.GatewayInternal,
			Reference:   referencePrefix + "-" + uuid.NewString(),
			InterestID:  &id,
			CompletedAt: &now,
			Metadata: models.JSON{
				"interest_id": in.ID,
				"property_id": in.PropertyID,
			},
		}); err != nil {
			return fmt.Errorf("failed to record spend: %w", err)
		}

		if err := repo.Interests().MarkUnlocked(ctx, in.ID, now); err != nil {
			return fmt.Errorf("failed to unlock interest: %w", err)
		}
		in.Unlocked = true
		in.Status = models.InterestStatusContacted
		in.UnlockedAt = &now
		unlocked = in
		remaining = balance
		return nil
	})
	if err != nil {
		s.metrics.RecordUnlock(unlockResult(err))
		if _, ok := apperrors.As(err); !ok {
			s.logger.Error("unlock failed", zap.Uint("interest_id", interestID), zap.Error(err))
		}
		return nil, err
	}
	s.metrics.RecordUnlock(ResultUnlocked)

	if err := s.cache.Delete(ctx, cache.BalanceKey(agentID)); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.Uint("user_id", agentID), zap.Error(err))
	}
	s.logger.Info("interest unlocked",
		zap.Uint("interest_id", interestID),
		zap.Uint("agent_id", agentID),
		zap.Int("credits_remaining", remaining))

	title := "your listing"
	if unlocked.Property != nil {
		title = fmt.Sprintf("%q", unlocked.Property.Title)
	}
	s.notifier.Send(ctx, notification.Input{
		UserID:  unlocked.SeekerID,
		Title:   "An agent has viewed your interest",
		Message: fmt.Sprintf("The agent for %s now has your contact details and may reach out.", title),
		Type:    models.NotificationInterestUnlock,
		Metadata: map[string]interface{}{
			"interest_id": unlocked.ID,
			"property_id": unlocked.PropertyID,
		},
	})

	return &UnlockResult{
		Interest:         agentView(*unlocked),
		CreditsSpent:     UnlockCost,
		CreditsRemaining: remaining,
	}, nil
}

func unlockResult(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientCredits):
		return ResultInsufficient
	case errors.Is(err, apperrors.ErrAlreadyUnlocked):
		return ResultAlreadyDone
	case errors.Is(err, apperrors.ErrNotPropertyOwner):
		return ResultNotOwner
	case errors.Is(err, apperrors.ErrInterestNotFound), errors.Is(err, apperrors.ErrPropertyNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}

func (s *service) ListForAgent(ctx context.Context, agentID uint) ([]View, error) {
	items, err := s.store.Interests().ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	views := make([]View, 0, len(items))
	for _, in := range items {
		views = append(views, agentView(in))
	}
	return views, nil
}

func (s *service) ListForSeeker(ctx context.Context, seekerID uint) ([]View, error) {
	items, err := s.store.Interests().ListBySeeker(ctx, seekerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	views := make([]View, 0, len(items))
	for _, in := range items {
		views = append(views, seekerView(in))
	}
	return views, nil
}

// Get returns the interest to its seeker or to the property's agent.
func (s *service) Get(ctx context.Context, interestID, userID uint) (*View, error) {
	in, err := s.store.Interests().GetByID(ctx, interestID)
	if err != nil {
		if errors.Is(err, repositories.ErrInterestNotFound) {
			return nil, apperrors.ErrInterestNotFound
		}
		return nil, fmt.Errorf("failed to load interest: %w", err)
	}

	var v View
	switch {
	case in.SeekerID == userID:
		v = seekerView(*in)
	case in.Property != nil && in.Property.AgentID == userID:
		v = agentView(*in)
	default:
		return nil, apperrors.ErrForbidden.WithMessage("interest belongs to another user")
	}
	return &v, nil
}
