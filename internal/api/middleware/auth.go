package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/auth"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
)

const (
	// ContextKeyAccountID holds the key for the account ID in Gin context.
	ContextKeyAccountID = "accountID"
	// ContextKeyAccountName holds the key for the account name in Gin context.
	ContextKeyAccountName = "accountName"
	// ContextKeyRole holds the key for the account role in Gin context.
	ContextKeyRole = "accountRole"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid or expired token: %v", err)})
			return
		}

		c.Set(ContextKeyAccountID, claims.AccountID)
		c.Set(ContextKeyAccountName, claims.Name)
		c.Set(ContextKeyRole, claims.Role)

		c.Next()
	}
}

// ActorFromContext rebuilds the acting identity from the context values set
// by AuthMiddleware.
func ActorFromContext(c *gin.Context) services.Actor {
	return services.Actor{
		ID:   c.GetString(ContextKeyAccountID),
		Name: c.GetString(ContextKeyAccountName),
		Role: RoleFromContext(c),
	}
}

// RoleFromContext returns the authenticated role, defaulting to client.
func RoleFromContext(c *gin.Context) models.Role {
	if v, exists := c.Get(ContextKeyRole); exists {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return models.RoleClient
}
