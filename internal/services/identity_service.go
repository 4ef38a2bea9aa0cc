package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/role-task-api/internal/auth"
	"github.com/yukikurage/role-task-api/internal/policy"
	"github.com/yukikurage/role-task-api/internal/repository"
	"gorm.io/gorm"
)

// IdentityService turns a bearer credential into an Actor.
type IdentityService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	revoker  auth.Revoker
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(userRepo repository.UserRepository, tokens *auth.TokenManager, revoker auth.Revoker) *IdentityService {
	return &IdentityService{
		userRepo: userRepo,
		tokens:   tokens,
		revoker:  revoker,
	}
}

// Resolve verifies the Authorization header value and loads the actor it
// refers to. Every rejection is ErrUnauthenticated; the cause is only
// logged. Store failures are returned as internal errors.
func (s *IdentityService) Resolve(ctx context.Context, authorization string) (policy.Actor, auth.Claims, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return policy.Actor{}, auth.Claims{}, ErrUnauthenticated
	}

	claims, err := s.tokens.Verify(raw)
	if err != nil {
		slog.DebugContext(ctx, "token rejected", "error", err)
		return policy.Actor{}, auth.Claims{}, ErrUnauthenticated
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return policy.Actor{}, auth.Claims{}, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		slog.DebugContext(ctx, "token revoked", "user_id", claims.UserID)
		return policy.Actor{}, auth.Claims{}, ErrUnauthenticated
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.Actor{}, auth.Claims{}, ErrUnauthenticated
		}
		return policy.Actor{}, auth.Claims{}, fmt.Errorf("failed to find user: %w", err)
	}
	if user.IsDeleted || !user.IsActive {
		slog.DebugContext(ctx, "inactive identity rejected", "user_id", user.ID)
		return policy.Actor{}, auth.Claims{}, ErrUnauthenticated
	}

	// An unresolvable role degrades to "user", never to more privilege.
	return policy.Actor{
		ID:     user.ID,
		Role:   user.RoleTitle(),
		RoleID: user.RoleID,
	}, claims, nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
