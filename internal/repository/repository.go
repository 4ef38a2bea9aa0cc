package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
)

// ErrNoRowsAffected is returned by conditional updates that matched no row.
var ErrNoRowsAffected = errors.New("repository: no rows affected")

// RoleRepository defines the interface for role data access
type RoleRepository interface {
	// EnsureRoles inserts the given roles, skipping titles that already exist
	EnsureRoles(ctx context.Context, roles []models.Role) error

	// FindByTitle finds a role by its title
	FindByTitle(ctx context.Context, title models.RoleTitle) (*models.Role, error)

	// List returns all roles
	List(ctx context.Context) ([]models.Role, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID with the role preloaded, including deleted users
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email, including deleted users
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns non-deleted users matching the filter, ordered by ID
	List(ctx context.Context, filter UserFilter) ([]models.User, error)

	// ListActiveIDsByRole returns IDs of active, non-deleted users with the role
	ListActiveIDsByRole(ctx context.Context, title models.RoleTitle) ([]uint64, error)

	// Update applies the given column changes to a non-deleted user
	Update(ctx context.Context, id uint64, changes map[string]interface{}) error

	// SoftDelete marks a non-deleted user as deleted
	SoftDelete(ctx context.Context, id uint64) error
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	// All lists every non-deleted user and ignores IDs
	All bool
	IDs []uint64
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a task together with its first status event
	Create(ctx context.Context, task *models.Task, first *models.StatusEvent) error

	// FindByID finds a task by ID, including deleted tasks
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List returns non-deleted tasks of the filter's owners, newest first,
	// with owner and status history preloaded
	List(ctx context.Context, filter policy.OwnerFilter) ([]models.Task, error)

	// UpdateFields applies column changes to a non-deleted task and appends
	// the event, if any, in a single transaction
	UpdateFields(ctx context.Context, id uint64, changes map[string]interface{}, event *models.StatusEvent) error

	// SoftDelete marks a non-deleted task as deleted
	SoftDelete(ctx context.Context, id uint64) error
}
