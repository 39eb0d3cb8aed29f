package discounts

import (
	"net/http"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Controller struct {
	engine *Engine
}

func NewController(engine *Engine) *Controller {
	return &Controller{engine: engine}
}

// QuoteDiscount handles POST /api/v1/discounts/quote
func (ctrl *Controller) QuoteDiscount(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	quote, err := ctrl.engine.Quote(c.Request.Context(), req.Code, uuid.MustParse(req.EventID), req.TicketCount, req.Subtotal)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Discount applied", ToQuoteResponse(quote))
}

// CreateDiscountCode handles POST /api/v1/admin/discounts
func (ctrl *Controller) CreateDiscountCode(c *gin.Context) {
	var req CreateDiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		response.RespondError(c, apperrors.InvalidRequest("value %q is not a number", req.Value))
		return
	}

	dc := &DiscountCode{
		Code:      req.Code,
		Type:      DiscountType(req.Type),
		Value:     value,
		ValidFrom: req.ValidFrom.UTC(),
		ValidTill: req.ValidTill.UTC(),
		MaxUses:   req.MaxUses,
		ApplicableEvents: lo.Map(req.ApplicableEventIDs, func(id string, _ int) ApplicableEvent {
			return ApplicableEvent{EventID: uuid.MustParse(id)}
		}),
		MinTicketCount: req.MinTicketCount,
		MinOrderValue:  req.MinOrderValue,
		Active:         req.Active == nil || *req.Active,
	}
	if err := ctrl.engine.CreateCode(c.Request.Context(), dc); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusCreated, "Discount code created", ToDiscountCodeResponse(dc))
}
