// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"context"
	"errors"
	"time"

	"estatehub/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateEmail       = errors.New("email already exists")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrPropertyNotFound     = errors.New("property not found")
	ErrInterestNotFound     = errors.New("interest not found")
	ErrDuplicateInterest    = errors.New("interest already exists")
	ErrBundleNotFound       = errors.New("bundle not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateReference   = errors.New("duplicate transaction reference")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Store groups the repositories. ExecuteInTransaction hands fn a Store
// bound to a single database transaction; reads made through it with the
// ForUpdate methods hold row locks until fn returns.
type Store interface {
	Users() UserRepository
	Properties() PropertyRepository
	Interests() InterestRepository
	Bundles() BundleRepository
	Ledger() LedgerRepository
	Notifications() NotificationRepository

	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLogin(ctx context.Context, id uint, at time.Time) error
	GetCredits(ctx context.Context, id uint) (int, error)

	// AdjustCredits applies delta to the balance in one statement and returns
	// the new balance. It fails with ErrInsufficientCredits, leaving the
	// balance untouched, if the result would be negative.
	AdjustCredits(ctx context.Context, id uint, delta int) (int, error)
}

// PropertyFilter narrows property listings.
type PropertyFilter struct {
	AgentID  uint
	Location string
	Status   string
	Limit    int
	Offset   int
}

type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error
	GetByID(ctx context.Context, id uint) (*models.Property, error)
	List(ctx context.Context, filter PropertyFilter) ([]models.Property, int64, error)
}

type InterestRepository interface {
	Create(ctx context.Context, interest *models.Interest) error
	// GetByID loads the interest with its Property and Seeker.
	GetByID(ctx context.Context, id uint) (*models.Interest, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Interest, error)
	MarkUnlocked(ctx context.Context, id uint, at time.Time) error
	ListByAgent(ctx context.Context, agentID uint) ([]models.Interest, error)
	ListBySeeker(ctx context.Context, seekerID uint) ([]models.Interest, error)
}

type BundleRepository interface {
	Create(ctx context.Context, bundle *models.CreditBundle) error
	GetByID(ctx context.Context, id uint) (*models.CreditBundle, error)
	ListActive(ctx context.Context) ([]models.CreditBundle, error)
	Update(ctx context.Context, bundle *models.CreditBundle) error
}

// LedgerRepository persists credit transactions.
type LedgerRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetByReferenceForUpdate(ctx context.Context, reference string) (*models.Transaction, error)
	SetGatewayReference(ctx context.Context, id uint, gatewayRef string) error

	// Complete and Fail only move pending rows; they report whether the row
	// changed.
	Complete(ctx context.Context, id uint, metadata models.JSON, at time.Time) (bool, error)
	Fail(ctx context.Context, id uint, reason string) (bool, error)

	ListByUser(ctx context.Context, userID uint, txType string, limit, offset int) ([]models.Transaction, int64, error)
	ListPending(ctx context.Context, txType string, createdBefore time.Time, limit int) ([]models.Transaction, error)

	// CreditBalance recomputes a balance from completed ledger rows.
	CreditBalance(ctx context.Context, userID uint) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
}
