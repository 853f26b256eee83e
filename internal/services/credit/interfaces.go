package credit

import (
	"context"
	"time"

	"estatehub/internal/models"
	"estatehub/internal/services/notification"
)

// Service runs credit purchases and their settlement.
type Service interface {
	ListBundles(ctx context.Context) ([]models.CreditBundle, error)
	CreateBundle(ctx context.Context, in BundleInput) (*models.CreditBundle, error)
	UpdateBundle(ctx context.Context, id uint, in BundleUpdate) (*models.CreditBundle, error)

	Purchase(ctx context.Context, userID, bundleID uint, gateway string) (*PurchaseResult, error)

	// Settle is the single idempotent settlement path. Every entry point
	// (client verify, provider webhook, browser callback, reconciler) ends here.
	Settle(ctx context.Context, reference string, source Source) (*SettlementResult, error)
	Verify(ctx context.Context, userID uint, reference string) (*SettlementResult, error)
	HandleWebhook(ctx context.Context, gateway string, payload []byte, signature string) (*SettlementResult, error)
	HandleCallback(ctx context.Context, reference string) (string, *SettlementResult, error)

	Balance(ctx context.Context, userID uint) (int, error)
	LedgerBalance(ctx context.Context, userID uint) (int, error)
	Transactions(ctx context.Context, userID uint, txType string, page, limit int) (*TransactionPage, error)

	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

// Cache is the read-through cache used for bundles and balances.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Locker provides a cross-instance mutex.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type Notifier interface {
	Send(ctx context.Context, in notification.Input)
}
