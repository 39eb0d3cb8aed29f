package verification

import (
	"github.com/gin-gonic/gin"
)

// SetupVerificationRoutes registers the admin queue; admin must already carry the admin auth middleware
func SetupVerificationRoutes(admin *gin.RouterGroup, controller *Controller) {
	adminBookings := admin.Group("/bookings")
	{
		adminBookings.GET("/awaiting-verification", controller.ListPending) // GET /api/v1/admin/bookings/awaiting-verification
		adminBookings.POST("/:id/verify", controller.VerifyBooking)         // POST /api/v1/admin/bookings/:id/verify
	}
}
