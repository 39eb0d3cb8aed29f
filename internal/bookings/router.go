package bookings

import (
	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures the customer facing booking routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", controller.CreateBooking)                                // POST /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)                                // GET /api/v1/bookings/:id
		bookings.POST("/:id/payment-reference", controller.SubmitPaymentReference) // POST /api/v1/bookings/:id/payment-reference
	}
}

// Route definitions for reference:
//
// POST   /api/v1/bookings                            - Hold tickets and create a PENDING_PAYMENT booking
// Request body: { "event_id": "...", "line_items": [{ "category_id": "GA", "quantity": 2 }],
//                 "customer": { "name": "...", "email": "..." }, "discount_code": "SAVE10" }
//
// GET    /api/v1/bookings/:id                        - Get a booking
//
// POST   /api/v1/bookings/:id/payment-reference      - Submit the bank transfer reference
// Request body: { "payment_reference": "TRX123456" }
//
// Lifecycle:
// 1. Create holds inventory until expires_at
// 2. Customer pays by transfer and submits the reference before expires_at
// 3. An admin accepts or rejects at /api/v1/admin/bookings/:id/verify
// 4. Unpaid bookings are expired by the background sweep and their holds released
