package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/role-task-api/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds composite indexes used by the role-scoped list queries.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model interface{}
		name  string
		sql   string
	}{
		// Task listing: owner filter, soft-delete filter, newest first
		{&models.Task{}, "idx_tasks_owner_listing", "CREATE INDEX idx_tasks_owner_listing ON tasks (user_id, is_deleted, created_at)"},

		// Manager visibility: active employees by role
		{&models.User{}, "idx_users_role_visibility", "CREATE INDEX idx_users_role_visibility ON users (role_id, is_deleted, is_active)"},

		// History of a task in insertion order
		{&models.StatusEvent{}, "idx_status_events_task_order", "CREATE INDEX idx_status_events_task_order ON task_status_events (task_id, id)"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			slog.Debug("Index already exists, skipping", "index", idx.name)
			continue
		}

		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("Created index", "index", idx.name)
	}

	return nil
}

// MigrateDatabase creates or updates every table and index.
func MigrateDatabase(db *gorm.DB) error {
	slog.Info("Running database migrations...")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	slog.Info("Database migrations completed")
	return nil
}
