package memory

import (
	"context"
	"sort"
	"time"

	"estatehub/internal/models"
	"estatehub/internal/repositories"
)

type bundleRepo struct {
	s   *state
	log *undoLog
}

func (r *bundleRepo) Create(_ context.Context, b *models.CreditBundle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	b.ID = r.s.id()
	b.CreatedAt, b.UpdatedAt = now, now
	remember(r.log, r.s.bundles, b.ID)
	r.s.bundles[b.ID] = *b
	return nil
}

func (r *bundleRepo) GetByID(_ context.Context, id uint) (*models.CreditBundle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bundles[id]
	if !ok {
		return nil, repositories.ErrBundleNotFound
	}
	return &b, nil
}

func (r *bundleRepo) ListActive(_ context.Context) ([]models.CreditBundle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.CreditBundle
	for _, b := range r.s.bundles {
		if b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func (r *bundleRepo) Update(_ context.Context, b *models.CreditBundle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bundles[b.ID]; !ok {
		return repositories.ErrBundleNotFound
	}
	b.UpdatedAt = time.Now()
	remember(r.log, r.s.bundles, b.ID)
	r.s.bundles[b.ID] = *b
	return nil
}

type ledgerRepo struct {
	s   *state
	log *undoLog
}

func (r *ledgerRepo) Create(_ context.Context, tx *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.transactions {
		if existing.Gateway == tx.Gateway && existing.Reference == tx.Reference {
			return repositories.ErrDuplicateReference
		}
	}
	now := time.Now()
	tx.ID = r.s.id()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	if tx.Status == "" {
		tx.Status = models.TransactionStatusPending
	}
	remember(r.log, r.s.transactions, tx.ID)
	r.s.transactions[tx.ID] = *tx
	return nil
}

func (r *ledgerRepo) GetByReference(_ context.Context, reference string) (*models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, tx := range r.s.transactions {
		if tx.Reference == reference {
			tx := tx
			return &tx, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *ledgerRepo) GetByReferenceForUpdate(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.GetByReference(ctx, reference)
}

func (r *ledgerRepo) SetGatewayReference(_ context.Context, id uint, gatewayRef string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	tx.GatewayReference = gatewayRef
	remember(r.log, r.s.transactions, id)
	r.s.transactions[id] = tx
	return nil
}

func (r *ledgerRepo) Complete(_ context.Context, id uint, metadata models.JSON, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok || tx.Status != models.TransactionStatusPending {
		return false, nil
	}
	tx.Status = models.TransactionStatusCompleted
	tx.Metadata = metadata
	tx.CompletedAt = &at
	tx.UpdatedAt = at
	remember(r.log, r.s.transactions, id)
	r.s.transactions[id] = tx
	return true, nil
}

func (r *ledgerRepo) Fail(_ context.Context, id uint, reason string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok || tx.Status != models.TransactionStatusPending {
		return false, nil
	}
	tx.Status = models.TransactionStatusFailed
	tx.FailureReason = reason
	tx.UpdatedAt = time.Now()
	remember(r.log, r.s.transactions, id)
	r.s.transactions[id] = tx
	return true, nil
}

func (r *ledgerRepo) ListByUser(_ context.Context, userID uint, txType string, limit, offset int) ([]models.Transaction, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Transaction
	for _, tx := range r.s.transactions {
		if tx.UserID != userID || (txType != "" && tx.Type != txType) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), int64(len(out)), nil
}

func (r *ledgerRepo) ListPending(_ context.Context, txType string, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Transaction
	for _, tx := range r.s.transactions {
		if tx.Type == txType && tx.Status == models.TransactionStatusPending && tx.CreatedAt.Before(createdBefore) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ledgerRepo) CreditBalance(_ context.Context, userID uint) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	balance := 0
	for _, tx := range r.s.transactions {
		if tx.UserID != userID || tx.Status != models.TransactionStatusCompleted {
			continue
		}
		switch tx.Type {
		case models.TransactionTypeCreditPurchase:
			balance += tx.Credits
		case models.TransactionTypeCreditSpent:
			balance -= tx.Credits
		}
	}
	return balance, nil
}

type notificationRepo struct {
	s   *state
	log *undoLog
}

func (r *notificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n.ID = r.s.id()
	n.CreatedAt = time.Now()
	remember(r.log, r.s.notifications, n.ID)
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) ListByUser(_ context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), int64(len(out)), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, userID, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return repositories.ErrNotificationNotFound
	}
	n.Read = true
	remember(r.log, r.s.notifications, id)
	r.s.notifications[id] = n
	return nil
}
