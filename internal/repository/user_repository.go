package repository

import (
	"context"

	"github.com/yukikurage/role-task-api/internal/database"
	"github.com/yukikurage/role-task-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Role").Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Role").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns non-deleted users matching the filter
func (r *GormUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Model(&models.User{}).
		Preload("Role").
		Scopes(database.NotDeleted("users"))

	if !filter.All {
		if len(filter.IDs) == 0 {
			return []models.User{}, nil
		}
		query = query.Where("users.id IN ?", filter.IDs)
	}

	var users []models.User
	if err := query.Order("users.id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListActiveIDsByRole returns IDs of active users holding the role
func (r *GormUserRepository) ListActiveIDsByRole(ctx context.Context, title models.RoleTitle) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Scopes(database.ActiveUsers).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.title = ?", title).
		Order("users.id").
		Pluck("users.id", &ids).Error
	return ids, err
}

// Update applies column changes to a non-deleted user
func (r *GormUserRepository) Update(ctx context.Context, id uint64, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// SoftDelete marks a user as deleted; deleting twice reports ErrNoRowsAffected
func (r *GormUserRepository) SoftDelete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
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
