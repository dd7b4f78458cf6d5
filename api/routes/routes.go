package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pairpoints/pairpoints-backend/internal/config"
	"github.com/pairpoints/pairpoints-backend/internal/handlers"
	"github.com/pairpoints/pairpoints-backend/internal/middleware"
	"github.com/sirupsen/logrus"
)

// HandlerDependencies carries every handler the router wires up.
type HandlerDependencies struct {
	HealthHandler       *handlers.HealthHandler
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	ConnectionHandler   *handlers.ConnectionHandler
	TransactionHandler  *handlers.TransactionHandler
	TimeoutHandler      *handlers.TimeoutHandler
	SyncHandler         *handlers.SyncHandler
	NotificationHandler *handlers.NotificationHandler
	StreamHandler       *handlers.StreamHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, logger *logrus.Logger, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", deps.HealthHandler.Check)

		auth := public.Group("/auth")
		{
			auth.POST("/signin", deps.AuthHandler.SignIn)
		}
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		users := protected.Group("/users")
		{
			users.GET("/me", deps.UserHandler.GetMe)
			users.POST("/me/matching-code", deps.UserHandler.RegenerateMatchingCode)
		}

		connections := protected.Group("/connections")
		{
			connections.POST("", deps.ConnectionHandler.Connect)
			connections.POST("/validate-code", deps.ConnectionHandler.ValidateCode)
			connections.GET("/me", deps.ConnectionHandler.GetMine)
			connections.DELETE("/:id", deps.ConnectionHandler.Disconnect)
		}

		transactions := protected.Group("/transactions")
		{
			transactions.POST("/give", deps.TransactionHandler.GivePoints)
			transactions.POST("/deduct", deps.TransactionHandler.DeductPoints)
			transactions.GET("/history", deps.TransactionHandler.GetHistory)
		}

		timeouts := protected.Group("/timeouts")
		{
			timeouts.GET("/can-request", deps.TimeoutHandler.CanRequest)
			timeouts.POST("", deps.TimeoutHandler.Create)
			timeouts.GET("/active/:connectionId", deps.TimeoutHandler.GetActive)
			timeouts.POST("/:id/expire", deps.TimeoutHandler.Expire)
			timeouts.POST("/sync/:connectionId", deps.TimeoutHandler.SyncPartnerState)
			timeouts.POST("/cleanup", deps.TimeoutHandler.Cleanup)
		}

		sync := protected.Group("/sync")
		{
			sync.GET("/status", deps.SyncHandler.GetStatus)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", deps.NotificationHandler.GetMine)
			notifications.POST("/:id/status", deps.NotificationHandler.UpdateStatus)
		}

		ws := protected.Group("/ws")
		{
			ws.GET("/transactions", deps.StreamHandler.Transactions)
			ws.GET("/connection", deps.StreamHandler.Connection)
			ws.GET("/timeout/:connectionId", deps.StreamHandler.Timeout)
			ws.GET("/sync", deps.StreamHandler.Sync)
		}
	}

	return router
}
