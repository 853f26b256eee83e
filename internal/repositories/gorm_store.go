package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository                 { return &userRepository{db: s.db} }
func (s *gormStore) Properties() PropertyRepository        { return &propertyRepository{db: s.db} }
func (s *gormStore) Interests() InterestRepository         { return &interestRepository{db: s.db} }
func (s *gormStore) Bundles() BundleRepository             { return &bundleRepository{db: s.db} }
func (s *gormStore) Ledger() LedgerRepository              { return &ledgerRepository{db: s.db} }
func (s *gormStore) Notifications() NotificationRepository { return &notificationRepository{db: s.db} }

func (s *gormStore) ExecuteInTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
