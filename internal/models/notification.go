package models

import "time"

// Notification types
const (
	NotificationCreditsAdded   = "credits_added"
	NotificationPaymentFailed  = "payment_failed"
	NotificationInterestNew    = "interest_new"
	NotificationInterestUnlock = "interest_unlocked"
)

type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `json:"message"`
	Type      string    `gorm:"index" json:"type"`
	Metadata  JSON      `gorm:"type:jsonb" json:"metadata,omitempty"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
