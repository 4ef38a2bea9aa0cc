// Package policy decides which users' data an actor may see or change.
// It is the single source of truth for role-based access; callers never
// compare role strings themselves.
package policy

import (
	"sort"

	"github.com/yukikurage/role-task-api/internal/models"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID     uint64
	Role   models.RoleTitle
	RoleID uint64
}

// IsPrivileged reports whether the actor may manage user accounts.
func IsPrivileged(actor Actor) bool {
	return actor.Role == models.RoleSuperAdmin
}

// NeedsEmployees reports whether VisibleUserIDs needs the employee list
// for this actor. Only managers see beyond themselves without being
// unrestricted.
func NeedsEmployees(actor Actor) bool {
	return actor.Role == models.RoleManager
}

// SelfOwnedOnly reports whether every task the actor creates is owned by
// the actor, whatever owner was requested.
func SelfOwnedOnly(actor Actor) bool {
	return actor.Role != models.RoleSuperAdmin && actor.Role != models.RoleManager
}

// Scope is the visibility set of an actor: either unrestricted or a
// fixed set of user ids.
type Scope struct {
	all bool
	ids map[uint64]struct{}
}

// Unrestricted returns a scope that allows every user id.
func Unrestricted() Scope {
	return Scope{all: true}
}

// Only returns a scope limited to the given user ids.
func Only(ids ...uint64) Scope {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Scope{ids: set}
}

// VisibleUserIDs computes the visibility set of actor. employeeIDs must
// hold the ids of every active, non-deleted account with the "user" role;
// it is ignored for everyone but managers. Unknown roles see only
// themselves.
func VisibleUserIDs(actor Actor, employeeIDs []uint64) Scope {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return Unrestricted()
	case models.RoleManager:
		return Only(append([]uint64{actor.ID}, employeeIDs...)...)
	default:
		return Only(actor.ID)
	}
}

// All reports whether the scope is unrestricted.
func (s Scope) All() bool {
	return s.all
}

// Allows reports whether data owned by userID is inside the scope.
func (s Scope) Allows(userID uint64) bool {
	if s.all {
		return true
	}
	_, ok := s.ids[userID]
	return ok
}

// UserIDs returns the ids of a restricted scope in ascending order. It
// returns nil for an unrestricted scope.
func (s Scope) UserIDs() []uint64 {
	if s.all {
		return nil
	}
	ids := make([]uint64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OwnerFilter restricts a task query to owners inside a scope.
type OwnerFilter struct {
	All      bool
	OwnerIDs []uint64
}

// TaskFilter derives the task query filter for the scope.
func (s Scope) TaskFilter() OwnerFilter {
	if s.all {
		return OwnerFilter{All: true}
	}
	return OwnerFilter{OwnerIDs: s.UserIDs()}
}

// Target describes the prospective owner of a new task.
type Target struct {
	ID     uint64
	Role   models.RoleTitle
	Exists bool // found and not deleted
	Active bool
}

// Assignment is the outcome of CanAssignTo.
type Assignment int

const (
	AssignAllowed Assignment = iota
	// AssignTargetMissing means the target does not resolve to a usable account.
	AssignTargetMissing
	// AssignForbidden means the actor may not create tasks for the target.
	AssignForbidden
)

// CanAssignTo decides whether actor may create a task owned by target.
// Plain users are never asked: their tasks are always their own.
func CanAssignTo(actor Actor, target Target) Assignment {
	if !target.Exists {
		return AssignTargetMissing
	}
	if actor.Role == models.RoleSuperAdmin {
		return AssignAllowed
	}
	if !target.Active {
		return AssignTargetMissing
	}
	switch actor.Role {
	case models.RoleManager:
		if target.ID == actor.ID || target.Role == models.RoleUser {
			return AssignAllowed
		}
		return AssignForbidden
	default:
		if target.ID == actor.ID {
			return AssignAllowed
		}
		return AssignForbidden
	}
}
