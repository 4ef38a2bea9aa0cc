package dto

import (
	"time"

	"github.com/yukikurage/role-task-api/internal/models"
)

// RoleDTO represents a role in API responses
type RoleDTO struct {
	ID          uint64           `json:"id"`
	Title       models.RoleTitle `json:"title"`
	Description string           `json:"description,omitempty"`
}

// UserDTO represents a user in API responses. The password hash is never
// part of it.
type UserDTO struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	RoleID    uint64    `json:"roleId"`
	Role      *RoleDTO  `json:"role,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRefDTO is the short form of a user embedded in tasks
type UserRefDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Address:   user.Address,
		RoleID:    user.RoleID,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	// Include role if preloaded
	if user.Role.ID != 0 {
		dto.Role = &RoleDTO{
			ID:          user.Role.ID,
			Title:       user.Role.Title,
			Description: user.Role.Description,
		}
	}

	return dto
}

// ToUserDTOs converts a slice of users, never returning nil
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, user := range users {
		out[i] = ToUserDTO(user)
	}
	return out
}

// ToUserRefDTO converts a User model to its short form
func ToUserRefDTO(user models.User) UserRefDTO {
	return UserRefDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}
