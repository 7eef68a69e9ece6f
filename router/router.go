package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/config"
	"github.com/yeremiapane/food-delivery-app/controllers"
	"github.com/yeremiapane/food-delivery-app/kds"
	"github.com/yeremiapane/food-delivery-app/middlewares"
	"github.com/yeremiapane/food-delivery-app/models"
	"github.com/yeremiapane/food-delivery-app/services"
	"github.com/yeremiapane/food-delivery-app/utils"
)

// SetupRouter wires services and controllers around the shared handles
// created in main.
func SetupRouter(cfg *config.Config, db *gorm.DB, hub *kds.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware(utils.Logger))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSOrigins))
	r.Use(middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).RateLimit())

	opts := []services.Option{services.WithNotifier(hub), services.WithLogger(utils.Logger)}
	if cfg.TestMode() {
		opts = append(opts, services.WithFaultInjector(services.RequestFaultInjector{}))
	}
	processor := services.NewOrderProcessor(db, opts...)
	updater := services.NewStatusUpdater(db, opts...)

	secret := []byte(cfg.JWTSecret)
	userCtrl := controllers.NewUserController(db, secret, cfg.JWTTTL)
	menuCtrl := controllers.NewMenuController(db)
	orderCtrl := controllers.NewOrderController(processor, updater, cfg.TestMode())
	paymentCtrl := controllers.NewPaymentController(services.NewPaymentService(db), processor)
	kdsCtrl := controllers.NewKDSController(hub, cfg.CORSOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/menus", menuCtrl.GetAllMenus)
	r.GET("/menus/:menu_id", menuCtrl.GetMenuByID)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	// order reads and cancellation are limited to the owner and staff
	orders := r.Group("/orders")
	orders.Use(middlewares.AuthMiddleware(secret))
	{
		orders.POST("", orderCtrl.CreateOrder)
		orders.GET("/:order_id", orderCtrl.GetOrderByID)
		orders.GET("/:order_id/tracking", orderCtrl.GetOrderTracking)
		orders.GET("/:order_id/payment", paymentCtrl.GetOrderPayment)
		orders.DELETE("/:order_id", orderCtrl.CancelOrder)
	}

	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware(secret))

	auth.GET("/profile", userCtrl.GetProfile)

	staff := middlewares.RequireRole(models.RoleStaff)
	auth.GET("/orders", staff, orderCtrl.GetAllOrders)
	auth.PATCH("/orders/:order_id", middlewares.RequireRole(models.RoleStaff, models.RoleCourier), orderCtrl.UpdateOrderStatus)
	auth.POST("/menus/:menu_id/restock", staff, menuCtrl.RestockMenu)

	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware(secret))
	{
		wsGroup.GET("/:role", kdsCtrl.KDSHandler)
	}

	return r
}
