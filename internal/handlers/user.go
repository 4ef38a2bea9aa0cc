package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/role-task-api/internal/dto"
	apierrors "github.com/yukikurage/role-task-api/internal/errors"
	"github.com/yukikurage/role-task-api/internal/middleware"
	"github.com/yukikurage/role-task-api/internal/services"
)

// UserHandler serves the user management endpoints.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Me returns the authenticated user
func (h *UserHandler) Me(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.userService.Me(c.Request.Context(), actor)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ListUsers returns the users visible to the current user
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	users, err := h.userService.ListUsers(c.Request.Context(), actor)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTOs(users))
}

// GetUser returns a specific user by ID
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	userID, _ := middleware.GetResourceID(c)

	user, err := h.userService.GetUser(c.Request.Context(), actor, userID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// CreateUser creates an account with an explicit role
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateUserRequest struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
		RoleTitle string `json:"roleTitle"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), actor, services.CreateUserInput{
		AccountInput: services.AccountInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Address:  req.Address,
		},
		RoleTitle: req.RoleTitle,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// UpdateUser applies a partial update; absent fields are left unchanged
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	userID, _ := middleware.GetResourceID(c)

	type UpdateUserRequest struct {
		Username  *string `json:"username"`
		Phone     *string `json:"phone"`
		Address   *string `json:"address"`
		IsActive  *bool   `json:"isActive"`
		RoleTitle *string `json:"roleTitle"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), actor, userID, services.UpdateUserInput{
		Username:  req.Username,
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  req.IsActive,
		RoleTitle: req.RoleTitle,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser soft-deletes a user
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	userID, _ := middleware.GetResourceID(c)

	if err := h.userService.DeleteUser(c.Request.Context(), actor, userID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}
