package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/role-task-api/internal/dto"
	apierrors "github.com/yukikurage/role-task-api/internal/errors"
	"github.com/yukikurage/role-task-api/internal/middleware"
	"github.com/yukikurage/role-task-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		Phone           string `json:"phone"`
		Address         string `json:"address"`
		RoleTitle       string `json:"roleTitle"`
		RegistrationKey string `json:"registrationKey"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		AccountInput: services.AccountInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Address:  req.Address,
		},
		RoleTitle:       req.RoleTitle,
		RegistrationKey: req.RegistrationKey,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{
		Token: result.Token,
		User:  dto.ToUserDTO(*result.User),
	})
}

// Login authenticates a user and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		Token: result.Token,
		User:  dto.ToUserDTO(*result.User),
	})
}

// Logout revokes the token the request was made with.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, exists := middleware.GetClaims(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
