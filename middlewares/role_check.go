package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/utils"
)

// RequireRole lets the request through when the authenticated role is one of
// roles. Admins always pass.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(ContextRole)
		if userRole == "" {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		if userRole == models.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == userRole {
				c.Next()
				return
			}
		}
		utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%s access required", strings.Join(roles, " or ")))
		c.Abort()
	}
}
