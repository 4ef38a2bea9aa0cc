package models

import (
	"strings"
	"time"
)

type RoleTitle string

const (
	RoleSuperAdmin RoleTitle = "super-admin"
	RoleManager    RoleTitle = "manager"
	RoleUser       RoleTitle = "user"
)

// DefaultRoles is the fixed role set seeded at startup.
var DefaultRoles = []Role{
	{Title: RoleSuperAdmin, Description: "Full access"},
	{Title: RoleManager, Description: "Team management access"},
	{Title: RoleUser, Description: "Basic user access"},
}

// ParseRoleTitle normalizes s and reports whether it names a known role.
// All role comparisons go through here.
func ParseRoleTitle(s string) (RoleTitle, bool) {
	switch title := RoleTitle(strings.ToLower(strings.TrimSpace(s))); title {
	case RoleSuperAdmin, RoleManager, RoleUser:
		return title, true
	default:
		return "", false
	}
}

type Role struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Title       RoleTitle `gorm:"type:varchar(20);uniqueIndex;not null" json:"title"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
