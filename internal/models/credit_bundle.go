package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditBundle is a purchasable package of credits plus bonus credits.
type CreditBundle struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Credits   int             `gorm:"not null" json:"credits"`
	Bonus     int             `gorm:"not null;default:0" json:"bonus"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	Currency  string          `gorm:"default:'NGN'" json:"currency"`
	Active    bool            `gorm:"default:true" json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TotalCredits is what a completed purchase of the bundle adds to a balance.
func (b *CreditBundle) TotalCredits() int {
	return b.Credits + b.Bonus
}

// MinorAmount converts the price into the smallest currency unit.
func (b *CreditBundle) MinorAmount() int64 {
	return b.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
