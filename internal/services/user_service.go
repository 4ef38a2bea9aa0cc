package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
	"github.com/yukikurage/role-task-api/internal/repository"
	"gorm.io/gorm"
)

// UserService handles user management business logic
type UserService struct {
	userRepo repository.UserRepository
	roles    *RoleRegistry
	scopes   scopeResolver
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, roles *RoleRegistry) *UserService {
	return &UserService{
		userRepo: userRepo,
		roles:    roles,
		scopes:   scopeResolver{userRepo: userRepo},
	}
}

// CreateUserInput represents an account created by an administrator
type CreateUserInput struct {
	AccountInput
	RoleTitle string
}

// UpdateUserInput represents a partial user update. Nil fields are left
// unchanged.
type UpdateUserInput struct {
	Username  *string
	Phone     *string
	Address   *string
	IsActive  *bool
	RoleTitle *string
}

// Me returns the actor's own profile
func (s *UserService) Me(ctx context.Context, actor policy.Actor) (*models.User, error) {
	return s.findLive(ctx, actor.ID)
}

// ListUsers returns the non-deleted users the actor can see, ordered by ID
func (s *UserService) ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	scope, err := s.scopes.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx, repository.UserFilter{All: scope.All(), IDs: scope.UserIDs()})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// GetUser returns a single user. Users outside the actor's scope are
// reported as missing.
func (s *UserService) GetUser(ctx context.Context, actor policy.Actor, userID uint64) (*models.User, error) {
	scope, err := s.scopes.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(userID) {
		return nil, ErrUserNotFound
	}

	return s.findLive(ctx, userID)
}

// CreateUser creates an account with any role
func (s *UserService) CreateUser(ctx context.Context, actor policy.Actor, input CreateUserInput) (*models.User, error) {
	if !policy.IsPrivileged(actor) {
		return nil, ErrForbidden
	}

	account, err := input.AccountInput.normalize()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.RoleTitle) == "" {
		return nil, ErrRoleTitleRequired
	}

	role, err := s.roles.FindRoleByTitle(ctx, input.RoleTitle)
	if err != nil {
		return nil, err
	}

	return createAccount(ctx, s.userRepo, account, role)
}

// UpdateUser applies a partial update to a non-deleted user
func (s *UserService) UpdateUser(ctx context.Context, actor policy.Actor, userID uint64, input UpdateUserInput) (*models.User, error) {
	if !policy.IsPrivileged(actor) {
		return nil, ErrForbidden
	}

	if _, err := s.findLive(ctx, userID); err != nil {
		return nil, err
	}

	changes := make(map[string]interface{})
	for column, value := range map[string]*string{
		"username": input.Username,
		"phone":    input.Phone,
		"address":  input.Address,
	} {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return nil, ErrEmptyUserField
		}
		changes[column] = trimmed
	}
	if input.IsActive != nil {
		changes["is_active"] = *input.IsActive
	}
	if input.RoleTitle != nil {
		role, err := s.roles.FindRoleByTitle(ctx, *input.RoleTitle)
		if err != nil {
			return nil, err
		}
		changes["role_id"] = role.ID
	}

	if len(changes) > 0 {
		if err := s.userRepo.Update(ctx, userID, changes); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return s.findLive(ctx, userID)
}

// DeleteUser soft-deletes a user. Deleting twice reports ErrUserNotFound.
func (s *UserService) DeleteUser(ctx context.Context, actor policy.Actor, userID uint64) error {
	if !policy.IsPrivileged(actor) {
		return ErrForbidden
	}

	if err := s.userRepo.SoftDelete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

func (s *UserService) findLive(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.IsDeleted {
		return nil, ErrUserNotFound
	}
	return user, nil
}
