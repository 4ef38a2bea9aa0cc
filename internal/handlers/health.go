package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/role-task-api/internal/errors"
	"gorm.io/gorm"
)

// HealthHandler reports whether the API and its database are reachable.
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health pings the database with a short timeout
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		apierrors.ServiceUnavailable(c, "Database unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Task Management API is running",
	})
}
