package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StaffMiddleware restricts a route group to back-office roles. Assumes
// AuthMiddleware runs first.
func StaffMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RoleFromContext(c).IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff privileges required"})
			return
		}
		c.Next()
	}
}

// AdminMiddleware restricts a route group to administrators. Assumes
// AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RoleFromContext(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}
