package verification

import (
	"net/http"

	"ticketbooth/internal/bookings"
	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/middleware"
	"ticketbooth/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// VerifyBooking handles POST /api/v1/admin/bookings/:id/verify
func (ctrl *Controller) VerifyBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apperrors.InvalidRequest("invalid booking id %q", c.Param("id")))
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	booking, err := ctrl.service.Decide(c.Request.Context(), bookingID, bookings.Decision(req.Decision), middleware.AdminID(c), req.Reason)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	message := "Payment accepted, tickets dispatched"
	if booking.Status == bookings.StatusRejected {
		message = "Payment rejected"
	}
	response.RespondSuccess(c, http.StatusOK, message, bookings.ToBookingResponse(booking))
}

// ListPending handles GET /api/v1/admin/bookings/awaiting-verification
func (ctrl *Controller) ListPending(c *gin.Context) {
	var query PendingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, total, err := ctrl.service.Pending(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Bookings awaiting verification retrieved successfully",
		bookings.ToBookingListResponse(list, total, query.Limit, query.Offset))
}
