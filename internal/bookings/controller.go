package bookings

import (
	"net/http"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateBooking handles POST /api/v1/bookings
func (ctrl *Controller) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	booking, err := ctrl.service.Create(c.Request.Context(), CreateInput{
		EventID: uuid.MustParse(req.EventID),
		LineItems: lo.Map(req.LineItems, func(li LineItemRequest, _ int) LineItemInput {
			return LineItemInput{CategoryID: li.CategoryID, Quantity: li.Quantity}
		}),
		Customer: CustomerInfo{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusCreated, "Booking created, awaiting payment", ToBookingResponse(booking))
}

// GetBooking handles GET /api/v1/bookings/:id
func (ctrl *Controller) GetBooking(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	booking, err := ctrl.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Booking retrieved successfully", ToBookingResponse(booking))
}

// SubmitPaymentReference handles POST /api/v1/bookings/:id/payment-reference
func (ctrl *Controller) SubmitPaymentReference(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	var req SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	booking, err := ctrl.service.SubmitPaymentReference(c.Request.Context(), bookingID, req.PaymentReference)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Payment reference submitted for verification", ToBookingResponse(booking))
}

func parseBookingID(c *gin.Context) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apperrors.InvalidRequest("invalid booking id %q", c.Param("id")))
		return uuid.Nil, false
	}
	return bookingID, true
}
