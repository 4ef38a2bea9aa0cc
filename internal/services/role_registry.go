package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/repository"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// RoleRegistry owns the fixed role set. Roles never change after seeding,
// so lookups are cached for the life of the process.
type RoleRegistry struct {
	roleRepo repository.RoleRepository

	group singleflight.Group
	mu    sync.RWMutex
	cache map[models.RoleTitle]models.Role
}

// NewRoleRegistry creates a new RoleRegistry.
func NewRoleRegistry(roleRepo repository.RoleRepository) *RoleRegistry {
	return &RoleRegistry{
		roleRepo: roleRepo,
		cache:    make(map[models.RoleTitle]models.Role),
	}
}

// EnsureDefaultRoles makes sure exactly one role exists per default title
// and loads them into the cache. It is safe to run concurrently and
// repeatedly.
func (r *RoleRegistry) EnsureDefaultRoles(ctx context.Context) error {
	if err := r.roleRepo.EnsureRoles(ctx, models.DefaultRoles); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	roles, err := r.roleRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list roles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range roles {
		r.cache[role.Title] = role
	}
	for _, role := range models.DefaultRoles {
		if _, ok := r.cache[role.Title]; !ok {
			return fmt.Errorf("role %q missing after seeding", role.Title)
		}
	}
	return nil
}

// FindRoleByTitle resolves a role title, case-insensitively.
func (r *RoleRegistry) FindRoleByTitle(ctx context.Context, title string) (*models.Role, error) {
	normalized, ok := models.ParseRoleTitle(title)
	if !ok {
		return nil, ErrRoleNotFound
	}

	r.mu.RLock()
	role, cached := r.cache[normalized]
	r.mu.RUnlock()
	if cached {
		return &role, nil
	}

	v, err, _ := r.group.Do(string(normalized), func() (interface{}, error) {
		found, err := r.roleRepo.FindByTitle(ctx, normalized)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[normalized] = *found
		r.mu.Unlock()
		return *found, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}

	found := v.(models.Role)
	return &found, nil
}
