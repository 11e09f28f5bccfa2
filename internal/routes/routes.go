package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/citasalud/citas-server/internal/handlers"
	"github.com/citasalud/citas-server/internal/notifier"
	"github.com/citasalud/citas-server/internal/store"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, st store.Store, n *notifier.Notifier) {
	// Initialize handlers
	citaHandler := handlers.NewCitaHandler(st, n)
	reminderHandler := handlers.NewReminderHandler(st)

	api := router.Group("/api")
	{
		citas := api.Group("/citas")
		{
			citas.GET("", citaHandler.List)
			citas.POST("", citaHandler.Create)
			citas.DELETE("", citaHandler.DeleteAll)

			citas.GET("/pendientes", citaHandler.GetPending)
			citas.GET("/fecha/:fecha", citaHandler.GetByDate)

			citas.GET("/:id", citaHandler.GetByID)
			citas.PUT("/:id", citaHandler.Update)
			citas.DELETE("/:id", citaHandler.Cancel)

			citas.PATCH("/:id/marcar-recordatorio", reminderHandler.MarkReminder)
			citas.PATCH("/:id/reset-flags", reminderHandler.ResetFlags)
			citas.PATCH("/reset-flags/all", reminderHandler.ResetAllFlags)
		}
	}

	// Liveness and service info endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "citas-server",
			"status":  "UP",
		})
	})
}
