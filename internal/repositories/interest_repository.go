package repositories

import (
	"context"
	"fmt"
	"time"

	"estatehub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type interestRepository struct {
	db *gorm.DB
}

func (r *interestRepository) Create(ctx context.Context, interest *models.Interest) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(interest).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateInterest
		}
		return fmt.Errorf("failed to create interest: %w", err)
	}
	return nil
}

func (r *interestRepository) GetByID(ctx context.Context, id uint) (*models.Interest, error) {
	var interest models.Interest
	err := r.db.WithContext(ctx).
		Preload("Property").
		Preload("Seeker").
		First(&interest, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInterestNotFound
		}
		return nil, fmt.Errorf("failed to get interest: %w", err)
	}
	return &interest, nil
}

// GetByIDForUpdate locks the interest row; the property and seeker are loaded separately
// because FOR UPDATE cannot be combined with the preload query.
func (r *interestRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Interest, error) {
	var interest models.Interest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&interest, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInterestNotFound
		}
		return nil, fmt.Errorf("failed to lock interest: %w", err)
	}

	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, interest.PropertyID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	interest.Property = &property

	var seeker models.User
	if err := r.db.WithContext(ctx).First(&seeker, interest.SeekerID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get seeker: %w", err)
	}
	interest.Seeker = &seeker
	return &interest, nil
}

func (r *interestRepository) MarkUnlocked(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Interest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unlocked":    true,
			"status":      models.InterestStatusContacted,
			"unlocked_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to unlock interest: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInterestNotFound
	}
	return nil
}

func (r *interestRepository) ListByAgent(ctx context.Context, agentID uint) ([]models.Interest, error) {
	var interests []models.Interest
	err := r.db.WithContext(ctx).
		Joins("JOIN properties ON properties.id = interests.property_id").
		Where("properties.agent_id = ?", agentID).
		Preload("Property").
		Preload("Seeker").
		Order("interests.created_at DESC").
		Find(&interests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list agent interests: %w", err)
	}
	return interests, nil
}

func (r *interestRepository) ListBySeeker(ctx context.Context, seekerID uint) ([]models.Interest, error) {
	var interests []models.Interest
	err := r.db.WithContext(ctx).
		Where("seeker_id = ?", seekerID).
		Preload("Property").
		Order("created_at DESC").
		Find(&interests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seeker interests: %w", err)
	}
	return interests, nil
}
