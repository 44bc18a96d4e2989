package middleware

import (
	"net/http"
	"strings"

	"anoa.com/mathter/internal/entity"
	account "anoa.com/mathter/internal/modules/account/service"
	"anoa.com/mathter/pkg/response"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	authService account.AuthService
}

func NewAuthMiddleware(authService account.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		current, err := m.authService.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		c.Set("account_id", current.ID)
		c.Set("account", current)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, err := response.GetAccount(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account not authenticated"})
			c.Abort()
			return
		}

		for _, role := range roles {
			if current.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		c.Abort()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(entity.RoleAdmin)
}
