package models

import (
	"strings"
	"time"
)

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"type:varchar(100);not null" json:"username"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Phone        string    `gorm:"type:varchar(50);not null" json:"phone"`
	Address      string    `gorm:"type:varchar(255);not null" json:"address"`
	RoleID       uint64    `gorm:"not null;index" json:"role_id"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	IsDeleted    bool      `gorm:"not null;index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RoleTitle returns the user's role, falling back to the least privileged
// role when the relation was not loaded or is unknown.
func (u User) RoleTitle() RoleTitle {
	if title, ok := ParseRoleTitle(string(u.Role.Title)); ok {
		return title
	}
	return RoleUser
}
