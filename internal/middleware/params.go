package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/role-task-api/internal/constants"
	apierrors "github.com/yukikurage/role-task-api/internal/errors"
)

// RequireIDParam parses the :id path parameter and stores it in the
// context. Non-numeric ids are rejected with 400 before any lookup.
func RequireIDParam(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			apierrors.BadRequest(c, "Invalid "+resource+" ID")
			return
		}

		c.Set(constants.ContextKeyResourceID, id)
		c.Next()
	}
}

// GetResourceID retrieves the id parsed by RequireIDParam
func GetResourceID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(constants.ContextKeyResourceID)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}
