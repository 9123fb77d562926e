package routes

import (
	"log/slog"
	"net/http"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/handlers"
	"restaurant-pos-api/internal/middleware"
	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	DB     *gorm.DB
	Tokens *auth.Manager
	Log    *slog.Logger

	// Hub serves /ws and the stats endpoint; nil disables both.
	Hub *realtime.Hub
	// Events receives producer emits. Defaults to Hub.
	Events realtime.Emitter
	// SocketIO is mounted at /socket.io/ when set.
	SocketIO http.Handler
}

func SetupRoutes(d Deps) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	events := d.Events
	var stats handlers.RealtimeStats
	if d.Hub != nil {
		stats = d.Hub
		if events == nil {
			events = d.Hub
		}
	}
	h := handlers.New(d.DB, events, stats, d.Tokens, d.Log)

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Restaurant POS API is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	api.POST("/login", h.Login)

	// Protected routes (authentication required)
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(d.Tokens))
	{
		protected.GET("/orders", h.GetOrders)
		protected.GET("/orders/:id", h.GetOrderByID)
		protected.POST("/orders", h.CreateOrder)
		protected.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		protected.PATCH("/orders/:id/kitchen",
			middleware.RequireRole(string(models.RoleKitchen), string(models.RoleManager), string(models.RoleAdmin)),
			h.UpdateKitchenStatus)

		protected.GET("/inventory", h.GetInventory)
		protected.PATCH("/inventory/:id/stock", h.UpdateStock)

		protected.GET("/notifications", h.GetNotifications)
		protected.PATCH("/notifications/read-all", h.MarkAllNotificationsRead)
		protected.PATCH("/notifications/:id/read", h.MarkNotificationRead)

		protected.GET("/staff", h.GetStaff)
		protected.GET("/realtime/stats", h.GetRealtimeStats)
	}

	if d.Hub != nil {
		ginRouter.GET("/ws", middleware.JWTAuthMiddleware(d.Tokens), handlers.WebSocketHandler(d.Hub, d.Log))
	}
	if d.SocketIO != nil {
		ginRouter.Any("/socket.io/*any", gin.WrapH(d.SocketIO))
	}

	return ginRouter
}
