package database

import (
	"gorm.io/gorm"
)

// NotDeleted excludes soft-deleted rows of the queried table.
func NotDeleted(table string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".is_deleted = ?", false)
	}
}

// ActiveUsers keeps users that can sign in: active and not deleted.
func ActiveUsers(db *gorm.DB) *gorm.DB {
	return db.Scopes(NotDeleted("users")).Where("users.is_active = ?", true)
}
