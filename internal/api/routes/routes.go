package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/rideloop/backend/internal/api/handlers"
	"github.com/rideloop/backend/internal/api/middleware"
	"github.com/rideloop/backend/internal/auth"
	"github.com/rideloop/backend/internal/domain/user"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, tokens *auth.Manager, users user.Repository, nrApp *newrelic.Application) {
	// Add New Relic middleware if enabled
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Public auth endpoints
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
		}

		// WebSocket connection; the handler performs its own token check so
		// the token can travel in the query string
		v1.GET("/ws", h.HandleWebSocket)

		// Everything below requires an authenticated principal
		authed := v1.Group("")
		authed.Use(middleware.Authenticate(tokens, users))
		{
			// Ride endpoints
			rides := authed.Group("/rides")
			{
				rides.POST("", h.RequestRide)
				rides.GET("/:id", h.GetRide)
				rides.POST("/:id/accept", middleware.RequireRole(user.RoleDriver), h.AcceptRide)
				rides.PATCH("/:id/status", h.UpdateRideStatus)
			}

			// Driver endpoints
			authed.POST("/drivers/availability", middleware.RequireRole(user.RoleDriver), h.SetAvailability)

			// Profile endpoints
			authed.GET("/me", h.GetProfile)
			authed.PATCH("/me", h.UpdateProfile)

			// Admin endpoints
			admin := authed.Group("/users", middleware.RequireRole(user.RoleAdmin))
			{
				admin.POST("/:id/approve", h.ApproveDriver)
				admin.POST("/:id/block", h.BlockUser)
				admin.POST("/:id/unblock", h.UnblockUser)
			}

			// Emergency alerts
			authed.POST("/emergency", h.TriggerEmergency)
		}
	}
}
