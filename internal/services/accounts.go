package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrPasswordTooLong      = newError(KindValidation, "password must be at most 72 bytes")
)

// AccountInput holds the fields every new account needs.
type AccountInput struct {
	Username string
	Email    string
	Password string
	Phone    string
	Address  string
}

func (in AccountInput) normalize() (AccountInput, error) {
	out := AccountInput{
		Username: strings.TrimSpace(in.Username),
		Email:    models.NormalizeEmail(in.Email),
		Password: in.Password,
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
	}
	if out.Username == "" || out.Email == "" || out.Password == "" || out.Phone == "" || out.Address == "" {
		return AccountInput{}, ErrUserFieldsRequired
	}
	return out, nil
}

// createAccount persists an active user with the given role. Emails are
// unique across all accounts, deleted ones included, so a deleted
// account's address cannot be taken over.
func createAccount(ctx context.Context, userRepo repository.UserRepository, in AccountInput, role *models.Role) (*models.User, error) {
	if _, err := userRepo.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashed),
		Phone:        in.Phone,
		Address:      in.Address,
		RoleID:       role.ID,
		IsActive:     true,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.Role = *role

	return user, nil
}
