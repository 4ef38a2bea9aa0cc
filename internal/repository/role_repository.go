package repository

import (
	"context"

	"github.com/yukikurage/role-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRoleRepository is a GORM implementation of RoleRepository
type GormRoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &GormRoleRepository{db: db}
}

// EnsureRoles inserts roles, relying on the unique title index so that
// concurrent seeders never fail on each other's rows.
func (r *GormRoleRepository) EnsureRoles(ctx context.Context, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}

	rows := make([]models.Role, len(roles))
	copy(rows, roles)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

// FindByTitle finds a role by its title
func (r *GormRoleRepository) FindByTitle(ctx context.Context, title models.RoleTitle) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("title = ?", title).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// List returns all roles
func (r *GormRoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}
