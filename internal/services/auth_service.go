package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yukikurage/role-task-api/internal/auth"
	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegistrationVerifier reports whether key unlocks self-registration with
// a privileged role.
type RegistrationVerifier func(role models.RoleTitle, key string) bool

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	roles    *RoleRegistry
	tokens   *auth.TokenManager
	revoker  auth.Revoker
	verifier RegistrationVerifier

	comparePassword func(hash, password []byte) error
}

// dummyPasswordHash is compared against when no usable account matches,
// so failed logins cost one bcrypt comparison either way.
var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("role-task-api/no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("failed to build dummy password hash: %v", err))
	}
	return hash
})

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, roles *RoleRegistry, tokens *auth.TokenManager, revoker auth.Revoker, verifier RegistrationVerifier) *AuthService {
	if verifier == nil {
		verifier = func(models.RoleTitle, string) bool { return false }
	}
	return &AuthService{
		userRepo: userRepo,
		roles:    roles,
		tokens:   tokens,
		revoker:  revoker,
		verifier: verifier,

		comparePassword: bcrypt.CompareHashAndPassword,
	}
}

// RegisterInput represents a public registration request.
type RegisterInput struct {
	AccountInput
	RoleTitle       string
	RegistrationKey string
}

// AuthResult is a signed-in user and their bearer token.
type AuthResult struct {
	User  *models.User
	Token string
}

// Register creates an account. Privileged roles need a valid registration
// key; a bad key fails the registration instead of downgrading the role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	account, err := input.AccountInput.normalize()
	if err != nil {
		return nil, err
	}

	title := models.RoleUser
	if input.RoleTitle != "" {
		parsed, ok := models.ParseRoleTitle(input.RoleTitle)
		if !ok {
			return nil, ErrRoleNotFound
		}
		title = parsed
	}
	if title != models.RoleUser && !s.verifier(title, input.RegistrationKey) {
		return nil, ErrRegistrationKeyInvalid
	}

	role, err := s.roles.FindRoleByTitle(ctx, string(title))
	if err != nil {
		return nil, err
	}

	user, err := createAccount(ctx, s.userRepo, account, role)
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials. Unknown, disabled and mismatched accounts
// all fail the same way.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := models.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrLoginFieldsRequired
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.comparePassword(dummyPasswordHash(), []byte(input.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.IsDeleted || !user.IsActive {
		_ = s.comparePassword(dummyPasswordHash(), []byte(input.Password))
		return nil, ErrInvalidCredentials
	}

	if err := s.comparePassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims auth.Claims) error {
	if err := s.revoker.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}
