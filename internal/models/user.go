package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleSeeker = "seeker"
	RoleAgent  = "agent"
	RoleAdmin  = "admin"
)

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null" json:"-"`
	Name         string `gorm:"not null"`
	Phone        string `gorm:"index"`
	Role         string `gorm:"not null;default:'seeker'"`
	Credits      int    `gorm:"not null;default:0;check:credits >= 0"`
	Status       string `gorm:"default:'active'"`
	TokenVersion int    `gorm:"default:1"`
	LastLoginAt  *time.Time
}

// IsAgent reports whether the user can list properties and unlock interests.
func (u *User) IsAgent() bool {
	return u.Role == RoleAgent || u.Role == RoleAdmin
}
