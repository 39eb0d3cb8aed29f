package bookings

import (
	"time"

	"github.com/samber/lo"
)

type BookingResponse struct {
	ID               string             `json:"id"`
	Reference        string             `json:"reference"`
	EventID          string             `json:"event_id"`
	Status           string             `json:"status"`
	LineItems        []LineItemResponse `json:"line_items"`
	Subtotal         int64              `json:"subtotal"`
	DiscountCode     string             `json:"discount_code,omitempty"`
	DiscountAmount   int64              `json:"discount_amount"`
	TotalAmount      int64              `json:"total_amount"`
	Customer         CustomerResponse   `json:"customer"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	RejectionReason  string             `json:"rejection_reason,omitempty"`
	ExpiresAt        time.Time          `json:"expires_at"`
	SubmittedAt      *time.Time         `json:"payment_submitted_at,omitempty"`
	VerifiedAt       *time.Time         `json:"verified_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

type LineItemResponse struct {
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	Amount     int64  `json:"amount"`
}

type CustomerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type BookingListResponse struct {
	Bookings   []BookingResponse `json:"bookings"`
	TotalCount int64             `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

func ToBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:        b.ID.String(),
		Reference: b.Reference,
		EventID:   b.EventID.String(),
		Status:    b.Status.String(),
		LineItems: lo.Map(b.LineItems, func(li LineItem, _ int) LineItemResponse {
			return LineItemResponse{
				CategoryID: li.CategoryID,
				Quantity:   li.Quantity,
				UnitPrice:  li.UnitPrice,
				Amount:     li.Amount(),
			}
		}),
		Subtotal:       b.Subtotal,
		DiscountCode:   lo.FromPtr(b.DiscountCode),
		DiscountAmount: b.DiscountAmount,
		TotalAmount:    b.TotalAmount,
		Customer: CustomerResponse{
			Name:  b.CustomerName,
			Email: b.CustomerEmail,
			Phone: b.CustomerPhone,
		},
		PaymentReference: lo.FromPtr(b.PaymentReference),
		RejectionReason:  lo.FromPtr(b.RejectionReason),
		ExpiresAt:        b.ExpiresAt,
		SubmittedAt:      b.PaymentSubmittedAt,
		VerifiedAt:       b.VerifiedAt,
		CreatedAt:        b.CreatedAt,
	}
}

func ToBookingListResponse(bookings []Booking, total int64, limit, offset int) BookingListResponse {
	return BookingListResponse{
		Bookings:   lo.Map(bookings, func(b Booking, _ int) BookingResponse { return ToBookingResponse(&b) }),
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}
}
