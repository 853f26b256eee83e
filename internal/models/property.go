package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property statuses
const (
	PropertyStatusActive = "active"
	PropertyStatusLet    = "let"
	PropertyStatusSold   = "sold"
)

type Property struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	AgentID     uint            `gorm:"index;not null" json:"agent_id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description"`
	Location    string          `gorm:"index" json:"location"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
	Status      string          `gorm:"default:'active'" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
