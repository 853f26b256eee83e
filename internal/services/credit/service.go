package credit

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
	"estatehub/internal/services/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type service struct {
	store    repositories.Store
	gateways *payment.Registry
	cache    Cache
	notifier Notifier
	config   Config
	metrics  MetricsCollector
	logger   *zap.Logger

	settling singleflight.Group
	now      func() time.Time
}

// NewService creates a new credit service
func NewService(
	store repositories.Store,
	gateways *payment.Registry,
	cacheStore Cache,
	notifier Notifier,
	config Config,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if store == nil {
		panic("store is required")
	}
	if gateways == nil {
		panic("gateway registry is required")
	}

	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}
	if config.BundleTTL <= 0 {
		config.BundleTTL = 10 * time.Minute
	}
	if config.BalanceTTL <= 0 {
		config.BalanceTTL = DefaultBalanceTTL
	}
	if config.ReconcileMinAge <= 0 {
		config.ReconcileMinAge = 10 * time.Minute
	}
	if config.ReconcileExpireAfter <= 0 {
		config.ReconcileExpireAfter = 24 * time.Hour
	}
	if config.ReconcileBatchSize <= 0 {
		config.ReconcileBatchSize = 50
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		store:    store,
		gateways: gateways,
		cache:    cacheStore,
		notifier: notifier,
		config:   config,
		metrics:  metrics,
		logger:   logger.Named("credit"),
		now:      time.Now,
	}
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, notification.Input) {}

func (s *service) ListBundles(ctx context.Context) ([]models.CreditBundle, error) {
	var bundles []models.CreditBundle
	if found, err := s.cache.Get(ctx, cache.ActiveBundlesKey, &bundles); err == nil && found {
		return bundles, nil
	}

	bundles, err := s.store.Bundles().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	if bundles == nil {
		bundles = []models.CreditBundle{}
	}
	if err := s.cache.SetWithTTL(ctx, cache.ActiveBundlesKey, bundles, s.config.BundleTTL); err != nil {
		s.logger.Debug("bundle cache write failed", zap.Error(err))
	}
	return bundles, nil
}

func (s *service) CreateBundle(ctx context.Context, in BundleInput) (*models.CreditBundle, error) {
	if strings.TrimSpace(in.Name) == "" || in.Credits <= 0 || in.Bonus < 0 || !in.Price.IsPositive() {
		return nil, apperrors.ErrInvalidInput.WithMessage("bundle needs a name, positive credits and a positive price")
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = s.config.Currency
	}

	bundle := &models.CreditBundle{
		Name:     strings.TrimSpace(in.Name),
		Credits:  in.Credits,
		Bonus:    in.Bonus,
		Price:    in.Price.Round(2),
		Currency: currency,
		Active:   true,
	}
	if err := s.store.Bundles().Create(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to create bundle: %w", err)
	}
	s.invalidate(ctx, cache.ActiveBundlesKey)
	return bundle, nil
}

func (s *service) UpdateBundle(ctx context.Context, id uint, in BundleUpdate) (*models.CreditBundle, error) {
	bundle, err := s.store.Bundles().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrBundleNotFound) {
			return nil, apperrors.ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}

	if in.Name != nil {
		bundle.Name = strings.TrimSpace(*in.Name)
	}
	if in.Credits != nil {
		bundle.Credits = *in.Credits
	}
	if in.Bonus != nil {
		bundle.Bonus = *in.Bonus
	}
	if in.Price != nil {
		bundle.Price = in.Price.Round(2)
	}
	if in.Active != nil {
		bundle.Active = *in.Active
	}
	if bundle.Name == "" || bundle.Credits <= 0 || bundle.Bonus < 0 || !bundle.Price.IsPositive() {
		return nil, apperrors.ErrInvalidInput.WithMessage("bundle needs a name, positive credits and a positive price")
	}

	if err := s.store.Bundles().Update(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to update bundle: %w", err)
	}
	s.invalidate(ctx, cache.ActiveBundlesKey)
	return bundle, nil
}

func (s *service) Purchase(ctx context.Context, userID, bundleID uint, gatewayName string) (*PurchaseResult, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	bundle, err := s.store.Bundles().GetByID(ctx, bundleID)
	if err != nil {
		if errors.Is(err, repositories.ErrBundleNotFound) {
			return nil, apperrors.ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}
	if !bundle.Active {
		return nil, apperrors.ErrBundleInactive
	}

	gw, err := s.gateways.Get(gatewayName)
	if err != nil {
		return nil, apperrors.ErrUnknownGateway
	}

	currency := bundle.Currency
	if currency == "" {
		currency = s.config.Currency
	}
	reference := newReference()
	bundleRef := bundle.ID
	tx := &models.Transaction{
		UserID:           user.ID,
		Type:             models.TransactionTypeCreditPurchase,
		Amount:           bundle.MinorAmount(),
		Currency:         currency,
		Credits:          bundle.TotalCredits(),
		Status:           models.TransactionStatusPending,
		Gateway:          gw.Name(),
		Reference:        reference,
		GatewayReference: reference,
		BundleID:         &bundleRef,
		Metadata: models.JSON{
			"reference":   reference,
			"bundle_id":   bundle.ID,
			"bundle_name": bundle.Name,
		},
	}
	if err := s.store.Ledger().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	started := s.now()
	initRes, err := gw.Initialize(ctx, payment.InitializeRequest{
		Email:       user.Email,
		Amount:      tx.Amount,
		Currency:    currency,
		Reference:   reference,
		Description: bundle.Name,
		CallbackURL: s.config.CallbackURL,
		Metadata: map[string]string{
			"user_id":   fmt.Sprint(user.ID),
			"bundle_id": fmt.Sprint(bundle.ID),
		},
	})
	s.metrics.RecordGatewayCall(gw.Name(), "initialize", time.Since(started), err)
	if err != nil {
		if _, ferr := s.store.Ledger().Fail(ctx, tx.ID, "initialize_failed"); ferr != nil {
			s.logger.Error("failed to mark purchase failed", zap.String("reference", reference), zap.Error(ferr))
		}
		s.metrics.RecordPurchase(gw.Name(), "gateway_error")
		s.logger.Warn("payment initialization failed",
			zap.String("reference", reference),
			zap.String("gateway", gw.Name()),
			zap.Error(err))
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, apperrors.ErrGatewayUnavailable.WithMessage(gw.Name() + " is not configured")
		}
		return nil, apperrors.ErrGatewayUnavailable
	}

	if initRes.Reference != "" && initRes.Reference != tx.GatewayReference {
		if err := s.store.Ledger().SetGatewayReference(ctx, tx.ID, initRes.Reference); err != nil {
			return nil, fmt.Errorf("failed to store gateway reference: %w", err)
		}
	}

	s.metrics.RecordPurchase(gw.Name(), "initialized")
	s.logger.Info("purchase initialized",
		zap.Uint("user_id", user.ID),
		zap.Uint("bundle_id", bundle.ID),
		zap.String("reference", reference),
		zap.String("gateway", gw.Name()))

	return &PurchaseResult{
		Reference:        reference,
		AuthorizationURL: initRes.AuthorizationURL,
		AccessCode:       initRes.AccessCode,
		Gateway:          gw.Name(),
		Amount:           tx.Amount,
		Currency:         currency,
		Credits:          tx.Credits,
	}, nil
}

func (s *service) Balance(ctx context.Context, userID uint) (int, error) {
	var cached int
	if found, err := s.cache.Get(ctx, cache.BalanceKey(userID), &cached); err == nil && found {
		return cached, nil
	}

	credits, err := s.store.Users().GetCredits(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, apperrors.ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to load balance: %w", err)
	}
	if err := s.cache.SetWithTTL(ctx, cache.BalanceKey(userID), credits, s.config.BalanceTTL); err != nil {
		s.logger.Debug("balance cache write failed", zap.Error(err))
	}
	return credits, nil
}

// LedgerBalance recomputes the balance from completed ledger rows.
func (s *service) LedgerBalance(ctx context.Context, userID uint) (int, error) {
	return s.store.Ledger().CreditBalance(ctx, userID)
}

func (s *service) Transactions(ctx context.Context, userID uint, txType string, page, limit int) (*TransactionPage, error) {
	if txType != "" && !models.ValidTransactionType(txType) {
		return nil, apperrors.ErrInvalidInput.WithMessage("unknown transaction type " + txType)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := s.store.Ledger().ListByUser(ctx, userID, txType, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return &TransactionPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func newReference() string {
	return referencePrefix + "-" + uuid.NewString()
}
