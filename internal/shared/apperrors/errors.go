package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the hosting layer
type Kind string

const (
	KindInvalidRequest        Kind = "INVALID_REQUEST"
	KindNotFound              Kind = "NOT_FOUND"
	KindInsufficientInventory Kind = "INSUFFICIENT_INVENTORY"
	KindDiscount              Kind = "DISCOUNT"
	KindInvalidState          Kind = "INVALID_STATE"
	KindAlreadyExpired        Kind = "ALREADY_EXPIRED"
	KindDuplicateReference    Kind = "DUPLICATE_REFERENCE"
	KindInternal              Kind = "INTERNAL"
)

// DiscountReason narrows a DISCOUNT error
type DiscountReason string

const (
	ReasonInvalidCode            DiscountReason = "INVALID_CODE"
	ReasonExpired                DiscountReason = "EXPIRED"
	ReasonNotYetValid            DiscountReason = "NOT_YET_VALID"
	ReasonUsageLimitReached      DiscountReason = "USAGE_LIMIT_REACHED"
	ReasonNotApplicableToEvent   DiscountReason = "NOT_APPLICABLE_TO_EVENT"
	ReasonBelowMinimumTickets    DiscountReason = "BELOW_MINIMUM_TICKETS"
	ReasonBelowMinimumOrderValue DiscountReason = "BELOW_MINIMUM_ORDER_VALUE"
	ReasonInactive               DiscountReason = "INACTIVE"
)

// Error is the typed result every core operation returns on failure
type Error struct {
	Kind    Kind
	Reason  DiscountReason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if e.Reason != "" {
			msg += ": " + string(e.Reason)
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, and on reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is checks
var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrInsufficientInventory = &Error{Kind: KindInsufficientInventory}
	ErrDiscount              = &Error{Kind: KindDiscount}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
	ErrAlreadyExpired        = &Error{Kind: KindAlreadyExpired}
	ErrDuplicateReference    = &Error{Kind: KindDuplicateReference}
	ErrInternal              = &Error{Kind: KindInternal}

	ErrInvalidCode            = &Error{Kind: KindDiscount, Reason: ReasonInvalidCode}
	ErrDiscountExpired        = &Error{Kind: KindDiscount, Reason: ReasonExpired}
	ErrNotYetValid            = &Error{Kind: KindDiscount, Reason: ReasonNotYetValid}
	ErrUsageLimitReached      = &Error{Kind: KindDiscount, Reason: ReasonUsageLimitReached}
	ErrNotApplicableToEvent   = &Error{Kind: KindDiscount, Reason: ReasonNotApplicableToEvent}
	ErrBelowMinimumTickets    = &Error{Kind: KindDiscount, Reason: ReasonBelowMinimumTickets}
	ErrBelowMinimumOrderValue = &Error{Kind: KindDiscount, Reason: ReasonBelowMinimumOrderValue}
	ErrDiscountInactive       = &Error{Kind: KindDiscount, Reason: ReasonInactive}
)

func InvalidRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InsufficientInventory(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInsufficientInventory, Message: fmt.Sprintf(format, args...)}
}

func Discount(reason DiscountReason, format string, args ...interface{}) *Error {
	return &Error{Kind: KindDiscount, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func AlreadyExpired(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAlreadyExpired, Message: fmt.Sprintf(format, args...)}
}

func DuplicateReference(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDuplicateReference, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an infrastructure failure
func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, INTERNAL for untyped errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ReasonOf returns the discount reason carried by err, if any
func ReasonOf(err error) DiscountReason {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

const genericModificationMessage = "this booking can no longer be modified"

// UserMessage renders err for customers. State details are never leaked.
func UserMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "something went wrong, please try again"
	}

	switch appErr.Kind {
	case KindInvalidState, KindDuplicateReference:
		return genericModificationMessage
	case KindAlreadyExpired:
		return "this booking has expired, please start a new booking"
	case KindDiscount:
		if appErr.Message != "" {
			return appErr.Message
		}
		return discountMessages[appErr.Reason]
	case KindInternal:
		return "something went wrong, please try again"
	}

	if appErr.Message != "" {
		return appErr.Message
	}
	return string(appErr.Kind)
}

var discountMessages = map[DiscountReason]string{
	ReasonInvalidCode:            "code not recognised",
	ReasonExpired:                "code expired",
	ReasonNotYetValid:            "code is not active yet",
	ReasonUsageLimitReached:      "code has reached its usage limit",
	ReasonNotApplicableToEvent:   "code cannot be used for this event",
	ReasonBelowMinimumTickets:    "add more tickets to use this code",
	ReasonBelowMinimumOrderValue: "order total is below the minimum for this code",
	ReasonInactive:               "code is no longer active",
}
