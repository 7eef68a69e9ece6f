package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/food-delivery-app/kds"
	"github.com/yeremiapane/food-delivery-app/models"
)

type KDSController struct {
	hub      *kds.Hub
	upgrader websocket.Upgrader
}

func NewKDSController(hub *kds.Hub, allowedOrigins []string) *KDSController {
	allowAll := false
	set := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowAll = allowAll || o == "*"
		set[o] = true
	}
	return &KDSController{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowAll || set[origin]
			},
		},
	}
}

// KDSHandler -> websocket endpoint for kitchen, courier and admin dashboards
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role := c.GetString("role")
	switch role {
	case models.RoleStaff, models.RoleAdmin, models.RoleCourier:
	case "":
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	default:
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	kc.hub.Register(ws, role)

	// clients only listen; reading detects the disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	kc.hub.Unregister(ws)
}
