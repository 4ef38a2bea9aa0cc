package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/role-task-api/internal/auth"
	"github.com/yukikurage/role-task-api/internal/constants"
	apierrors "github.com/yukikurage/role-task-api/internal/errors"
	"github.com/yukikurage/role-task-api/internal/policy"
)

// IdentityResolver turns an Authorization header into an actor.
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (policy.Actor, auth.Claims, error)
}

// RequireAuth checks the bearer token and stores the actor in the context
func RequireAuth(identity IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, claims, err := identity.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			apierrors.RespondWithServiceError(c, err)
			return
		}

		// Store actor in context for easy access in handlers
		c.Set(constants.ContextKeyActor, actor)
		c.Set(constants.ContextKeyTokenClaims, claims)
		c.Next()
	}
}

// RequireSuperAdmin only lets privileged actors through. It must run
// after RequireAuth.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := GetActor(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}
		if !policy.IsPrivileged(actor) {
			apierrors.Forbidden(c, "Super-admin access required")
			return
		}
		c.Next()
	}
}

// GetActor retrieves the current actor from context
func GetActor(c *gin.Context) (policy.Actor, bool) {
	value, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return policy.Actor{}, false
	}
	actor, ok := value.(policy.Actor)
	return actor, ok
}

// GetClaims retrieves the verified token claims from context
func GetClaims(c *gin.Context) (auth.Claims, bool) {
	value, exists := c.Get(constants.ContextKeyTokenClaims)
	if !exists {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}
