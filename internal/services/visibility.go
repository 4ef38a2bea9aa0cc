package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
	"github.com/yukikurage/role-task-api/internal/repository"
)

// scopeResolver loads what the visibility policy needs from storage.
type scopeResolver struct {
	userRepo repository.UserRepository
}

// scopeFor returns the actor's visibility set. Only managers cost a query.
func (r scopeResolver) scopeFor(ctx context.Context, actor policy.Actor) (policy.Scope, error) {
	var employees []uint64
	if policy.NeedsEmployees(actor) {
		ids, err := r.userRepo.ListActiveIDsByRole(ctx, models.RoleUser)
		if err != nil {
			return policy.Scope{}, fmt.Errorf("failed to list employees: %w", err)
		}
		employees = ids
	}
	return policy.VisibleUserIDs(actor, employees), nil
}
