package repositories

import (
	"context"
	"fmt"
	"time"

	"estatehub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.getByReference(r.db.WithContext(ctx), reference)
}

func (r *ledgerRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.getByReference(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), reference)
}

func (r *ledgerRepository) getByReference(db *gorm.DB, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Where("reference = ?", reference).First(&tx).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *ledgerRepository) SetGatewayReference(ctx context.Context, id uint, gatewayRef string) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("gateway_reference", gatewayRef).Error
}

func (r *ledgerRepository) Complete(ctx context.Context, id uint, metadata models.JSON, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":       models.TransactionStatusCompleted,
			"metadata":     metadata,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to complete transaction: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ledgerRepository) Fail(ctx context.Context, id uint, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":         models.TransactionStatusFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to fail transaction: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID uint, txType string, limit, offset int) ([]models.Transaction, int64, error) {
	limit, offset = clampPage(limit, offset)

	q := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if txType != "" {
		q = q.Where("type = ?", txType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txs []models.Transaction
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}

func (r *ledgerRepository) ListPending(ctx context.Context, txType string, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ? AND created_at < ?", txType, models.TransactionStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	return txs, nil
}

func (r *ledgerRepository) CreditBalance(ctx context.Context, userID uint) (int, error) {
	var balance int
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ? AND status = ?", userID, models.TransactionStatusCompleted).
		Select(`COALESCE(SUM(CASE WHEN type = ? THEN credits WHEN type = ? THEN -credits ELSE 0 END), 0)`,
			models.TransactionTypeCreditPurchase, models.TransactionTypeCreditSpent).
		Scan(&balance).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute ledger balance: %w", err)
	}
	return balance, nil
}
