package middleware

import (
	"net/http"
	"strings"

	"github.com/SergeiKhy/shortlinks/internal/auth"
	"github.com/SergeiKhy/shortlinks/internal/repository"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// RequireAuth проверяет bearer-токен и резолвит идентификатор из него
// в живую запись пользователя. Любой отказ — 401: без свежей аутентификации
// повторять запрос бессмысленно.
func RequireAuth(tokens *auth.TokenManager, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header must be in format: Bearer {token}",
			})
			c.Abort()
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			// Причина отказа токена клиенту не раскрывается
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid token",
			})
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "User not found",
			})
			c.Abort()
			return
		}

		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

// UserID извлекает идентификатор аутентифицированного пользователя из контекста
func UserID(c *gin.Context) (int64, bool) {
	id, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	return id.(int64), true
}
