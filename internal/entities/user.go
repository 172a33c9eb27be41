package entities

import (
	"time"
)

type Role string

const (
	RolePatron Role = "patron"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:256" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	Role         Role      `gorm:"size:20;default:'patron'" json:"role"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	Token        string    `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may perform privileged operations.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
