package repository

import (
	"context"

	"github.com/yukikurage/role-task-api/internal/database"
	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a task and its first status event atomically
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task, first *models.StatusEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}

		first.TaskID = task.ID
		if err := tx.Omit(clause.Associations).Create(first).Error; err != nil {
			return err
		}

		task.StatusHistory = []models.StatusEvent{*first}
		return nil
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = preloadTaskRelation(query, p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves non-deleted tasks owned by the filter's owners
func (r *GormTaskRepository) List(ctx context.Context, filter policy.OwnerFilter) ([]models.Task, error) {
	if !filter.All && len(filter.OwnerIDs) == 0 {
		return []models.Task{}, nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.NotDeleted("tasks"))

	if !filter.All {
		query = query.Where("tasks.user_id IN ?", filter.OwnerIDs)
	}

	for _, p := range []string{"Owner", "StatusHistory", "StatusHistory.ChangedByUser"} {
		query = preloadTaskRelation(query, p)
	}

	var tasks []models.Task
	if err := query.Order("tasks.created_at DESC").Order("tasks.id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// UpdateFields updates a task and appends a status event in one transaction.
// The event is an independent insert, so concurrent changes never drop
// each other's history.
func (r *GormTaskRepository) UpdateFields(ctx context.Context, id uint64, changes map[string]interface{}, event *models.StatusEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(changes) > 0 {
			result := tx.Model(&models.Task{}).
				Where("id = ? AND is_deleted = ?", id, false).
				Updates(changes)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrNoRowsAffected
			}
		}

		if event != nil {
			event.TaskID = id
			if err := tx.Omit(clause.Associations).Create(event).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// SoftDelete marks a task as deleted; deleting twice reports ErrNoRowsAffected
func (r *GormTaskRepository) SoftDelete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// preloadTaskRelation keeps status history in insertion order.
func preloadTaskRelation(query *gorm.DB, relation string) *gorm.DB {
	if relation == "StatusHistory" {
		return query.Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_status_events.id ASC")
		})
	}
	return query.Preload(relation)
}
