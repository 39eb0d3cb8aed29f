package events

import (
	"github.com/gin-gonic/gin"
)

// SetupEventRoutes registers public browsing and admin management routes.
// admin must already carry the admin auth middleware.
func SetupEventRoutes(public *gin.RouterGroup, admin *gin.RouterGroup, controller *Controller) {
	publicEvents := public.Group("/events")
	{
		publicEvents.GET("", controller.GetAllEvents) // GET /api/v1/events
		publicEvents.GET("/:id", controller.GetEvent) // GET /api/v1/events/:id
	}

	adminEvents := admin.Group("/events")
	{
		adminEvents.POST("", controller.CreateEvent)              // POST /api/v1/admin/events
		adminEvents.POST("/:id/publish", controller.PublishEvent) // POST /api/v1/admin/events/:id/publish
	}
}
