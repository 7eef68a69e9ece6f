package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/services"
	"github.com/yeremiapane/food-delivery-app/utils"
)

// actsForAnyUser reports whether the caller may read or change other
// users' orders.
func actsForAnyUser(c *gin.Context) bool {
	role := c.GetString("role")
	return role == models.RoleStaff || role == models.RoleAdmin
}

// authorizeOrder loads the order and lets the request through only for its
// owner or for staff. It writes the error response itself.
func authorizeOrder(c *gin.Context, processor *services.OrderProcessor) (*models.Order, bool) {
	id, ok := parseID(c, "order_id")
	if !ok {
		return nil, false
	}
	order, err := processor.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	if order.UserID != c.GetUint("user_id") && !actsForAnyUser(c) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return nil, false
	}
	return order, true
}
