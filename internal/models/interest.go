package models

import "time"

// Interest statuses
const (
	InterestStatusPending   = "pending"
	InterestStatusContacted = "contacted"
	InterestStatusClosed    = "closed"
)

// Interest records a seeker's interest in a property. The agent sees the
// seeker's contact details only once it is unlocked.
type Interest struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	PropertyID uint       `gorm:"uniqueIndex:idx_interest_property_seeker;not null" json:"property_id"`
	SeekerID   uint       `gorm:"uniqueIndex:idx_interest_property_seeker;not null" json:"seeker_id"`
	Message    string     `json:"message"`
	Unlocked   bool       `gorm:"not null;default:false" json:"unlocked"`
	Status     string     `gorm:"not null;default:'pending'" json:"status"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Seeker   *User     `gorm:"foreignKey:SeekerID" json:"-"`
}
