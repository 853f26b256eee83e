package repositories

import (
	"context"
	"fmt"

	"estatehub/internal/models"

	"gorm.io/gorm"
)

type propertyRepository struct {
	db *gorm.DB
}

func (r *propertyRepository) Create(ctx context.Context, p *models.Property) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (r *propertyRepository) GetByID(ctx context.Context, id uint) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

func (r *propertyRepository) List(ctx context.Context, filter PropertyFilter) ([]models.Property, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)

	q := r.db.WithContext(ctx).Model(&models.Property{})
	if filter.AgentID != 0 {
		q = q.Where("agent_id = ?", filter.AgentID)
	}
	if filter.Location != "" {
		q = q.Where("location ILIKE ?", "%"+filter.Location+"%")
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	var properties []models.Property
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&properties).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, total, nil
}
