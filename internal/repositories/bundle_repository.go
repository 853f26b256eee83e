package repositories

import (
	"context"
	"fmt"

	"estatehub/internal/models"

	"gorm.io/gorm"
)

type bundleRepository struct {
	db *gorm.DB
}

func (r *bundleRepository) Create(ctx context.Context, bundle *models.CreditBundle) error {
	if err := r.db.WithContext(ctx).Create(bundle).Error; err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	return nil
}

func (r *bundleRepository) GetByID(ctx context.Context, id uint) (*models.CreditBundle, error) {
	var bundle models.CreditBundle
	if err := r.db.WithContext(ctx).First(&bundle, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to get bundle: %w", err)
	}
	return &bundle, nil
}

func (r *bundleRepository) ListActive(ctx context.Context) ([]models.CreditBundle, error) {
	var bundles []models.CreditBundle
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("price ASC").
		Find(&bundles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	return bundles, nil
}

func (r *bundleRepository) Update(ctx context.Context, bundle *models.CreditBundle) error {
	res := r.db.WithContext(ctx).Save(bundle)
	if res.Error != nil {
		return fmt.Errorf("failed to update bundle: %w", res.Error)
	}
	return nil
}
