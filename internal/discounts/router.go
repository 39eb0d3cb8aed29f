package discounts

import (
	"github.com/gin-gonic/gin"
)

// SetupDiscountRoutes registers the public quote route and the admin code management route.
// admin must already carry the admin auth middleware.
func SetupDiscountRoutes(public *gin.RouterGroup, admin *gin.RouterGroup, controller *Controller) {
	discounts := public.Group("/discounts")
	{
		discounts.POST("/quote", controller.QuoteDiscount) // POST /api/v1/discounts/quote
	}

	adminDiscounts := admin.Group("/discounts")
	{
		adminDiscounts.POST("", controller.CreateDiscountCode) // POST /api/v1/admin/discounts
	}
}
