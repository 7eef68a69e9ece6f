package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/food-delivery-app/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// AuthMiddleware requires a "Bearer <jwt>" Authorization header.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header must use the Bearer scheme"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
