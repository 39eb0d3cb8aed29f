package bookings

import (
	"time"

	"ticketbooth/internal/inventory"

	"github.com/google/uuid"
)

// Booking is owned by the state machine; callers only read snapshots of it
type Booking struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Reference string     `gorm:"size:32;uniqueIndex;not null" json:"reference"`
	EventID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"event_id"`
	LineItems []LineItem `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"line_items"`

	Subtotal       int64      `gorm:"not null;check:subtotal >= 0" json:"subtotal"`
	DiscountCode   *string    `gorm:"size:64" json:"discount_code,omitempty"`
	DiscountAmount int64      `gorm:"not null;default:0;check:discount_amount >= 0" json:"discount_amount"`
	DiscountUseID  *uuid.UUID `gorm:"type:uuid" json:"-"`
	DiscountCodeID *uuid.UUID `gorm:"type:uuid" json:"-"`
	TotalAmount    int64      `gorm:"not null;check:total_amount >= 0" json:"total_amount"`

	CustomerName  string `gorm:"size:100;not null" json:"customer_name"`
	CustomerEmail string `gorm:"size:255;not null;index" json:"customer_email"`
	CustomerPhone string `gorm:"size:20" json:"customer_phone,omitempty"`

	PaymentReference   *string    `gorm:"size:64" json:"payment_reference,omitempty"`
	PaymentSubmittedAt *time.Time `json:"payment_submitted_at,omitempty"`

	Status          Status     `gorm:"type:varchar(30);index;not null;check:status IN ('PENDING_PAYMENT', 'AWAITING_VERIFICATION', 'CONFIRMED', 'REJECTED', 'EXPIRED')" json:"status"`
	VerifiedBy      *string    `gorm:"size:255" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`

	// HoldsSettled turns true once the inventory and discount holds of a terminal booking are settled
	HoldsSettled bool `gorm:"not null;default:false" json:"-"`

	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem freezes the unit price at booking time and remembers its inventory hold
type LineItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID     uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Position      int       `gorm:"not null" json:"-"`
	CategoryID    string    `gorm:"size:64;not null" json:"category_id"`
	Quantity      int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice     int64     `gorm:"not null;check:unit_price >= 0" json:"unit_price"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null" json:"-"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (LineItem) TableName() string {
	return "booking_line_items"
}

func (li LineItem) Amount() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

// ReservationTokens rebuilds the inventory holds for each line item
func (b *Booking) ReservationTokens() []inventory.ReservationToken {
	tokens := make([]inventory.ReservationToken, len(b.LineItems))
	for i, li := range b.LineItems {
		tokens[i] = inventory.ReservationToken{
			ID:         li.ReservationID,
			EventID:    b.EventID,
			CategoryID: li.CategoryID,
			Quantity:   li.Quantity,
		}
	}
	return tokens
}

func (b *Booking) TicketCount() int {
	n := 0
	for _, li := range b.LineItems {
		n += li.Quantity
	}
	return n
}

func (b *Booking) clone() *Booking {
	c := *b
	c.LineItems = append([]LineItem(nil), b.LineItems...)
	return &c
}

// CustomerInfo is the contact the tickets are sent to
type CustomerInfo struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,min=7,max=20"`
}

// LineItemInput is one requested category and quantity
type LineItemInput struct {
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

// CreateInput carries everything create needs
type CreateInput struct {
	EventID      uuid.UUID
	LineItems    []LineItemInput
	Customer     CustomerInfo
	DiscountCode string
}

// VerifyInput carries the admin identity and optional rejection reason
type VerifyInput struct {
	AdminID string
	Reason  string
}
