package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeCreditPurchase = "credit_purchase"
	TransactionTypeCreditSpent    = "credit_spent"
	TransactionTypeWalletLoad     = "wallet_load"
	TransactionTypeWalletDebit    = "wallet_debit"
)

// Transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// GatewayInternal marks ledger rows that never touched a payment provider.
const GatewayInternal = "internal"

// Transaction is a ledger row. Purchases start pending and are settled once;
// spends are written completed.
type Transaction struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	UserID           uint       `gorm:"index;not null" json:"user_id"`
	Type             string     `gorm:"index;not null" json:"type"`
	Amount           int64      `gorm:"not null;default:0" json:"amount"` // minor units
	Currency         string     `gorm:"default:'NGN'" json:"currency"`
	Credits          int        `gorm:"not null;default:0" json:"credits"`
	Status           string     `gorm:"index;not null;default:'pending'" json:"status"`
	Gateway          string     `gorm:"uniqueIndex:idx_gateway_reference;not null;default:'internal'" json:"gateway"`
	Reference        string     `gorm:"uniqueIndex:idx_gateway_reference;not null" json:"reference"`
	GatewayReference string     `gorm:"index" json:"-"`
	BundleID         *uint      `json:"bundle_id,omitempty"`
	InterestID       *uint      `json:"interest_id,omitempty"`
	Metadata         JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (t *Transaction) IsPending() bool   { return t.Status == TransactionStatusPending }
func (t *Transaction) IsCompleted() bool { return t.Status == TransactionStatusCompleted }

// ValidTransactionType reports whether s names a known ledger type.
func ValidTransactionType(s string) bool {
	switch s {
	case TransactionTypeCreditPurchase, TransactionTypeCreditSpent,
		TransactionTypeWalletLoad, TransactionTypeWalletDebit:
		return true
	}
	return false
}
