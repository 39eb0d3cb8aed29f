package response

import (
	"errors"
	"net/http"

	"ticketbooth/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

func RespondSuccess(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// ErrorDetail is the machine-readable part of an error response
type ErrorDetail struct {
	Kind   apperrors.Kind           `json:"kind"`
	Reason apperrors.DiscountReason `json:"reason,omitempty"`
}

// RespondError writes err in the standard envelope with a status derived from its kind
func RespondError(c *gin.Context, err error) {
	code := StatusFor(err)
	detail := ErrorDetail{Kind: apperrors.KindOf(err), Reason: apperrors.ReasonOf(err)}
	_ = c.Error(err)
	RespondJSON(c, "error", code, apperrors.UserMessage(err), nil, detail)
}

func StatusFor(err error) int {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case apperrors.KindInvalidRequest:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInsufficientInventory, apperrors.KindInvalidState, apperrors.KindDuplicateReference:
		return http.StatusConflict
	case apperrors.KindDiscount:
		return http.StatusUnprocessableEntity
	case apperrors.KindAlreadyExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
