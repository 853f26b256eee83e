package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estatehub/internal/models"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *userRepository) GetCredits(ctx context.Context, id uint) (int, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Select("id", "credits").
		Where("id = ?", id).
		Limit(1).
		Find(&users).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get credits: %w", err)
	}
	if len(users) == 0 {
		return 0, ErrUserNotFound
	}
	return users[0].Credits, nil
}

func (r *userRepository) AdjustCredits(ctx context.Context, id uint, delta int) (int, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND credits + ? >= 0", id, delta).
		UpdateColumn("credits", gorm.Expr("credits + ?", delta))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to adjust credits: %w", res.Error)
	}

	credits, err := r.GetCredits(ctx, id)
	if err != nil {
		return 0, err
	}
	if res.RowsAffected == 0 {
		return credits, ErrInsufficientCredits
	}
	return credits, nil
}
