package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeBookingCreated    NotificationType = "BOOKING_CREATED"
	TypePaymentSubmitted  NotificationType = "PAYMENT_SUBMITTED"
	TypeTicketsDispatched NotificationType = "TICKETS_DISPATCHED"
	TypeBookingRejected   NotificationType = "BOOKING_REJECTED"
	TypeBookingExpired    NotificationType = "BOOKING_EXPIRED"
)

// BookingNotification is published on every booking lifecycle transition
type BookingNotification struct {
	ID        uuid.UUID        `json:"id"`
	Type      NotificationType `json:"type"`
	BookingID uuid.UUID        `json:"booking_id"`
	Reference string           `json:"reference"`
	EventID   uuid.UUID        `json:"event_id"`
	Status    string           `json:"status"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	TotalAmount      int64  `json:"total_amount"`
	PaymentReference string `json:"payment_reference,omitempty"`
	Reason           string `json:"reason,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

func (n *BookingNotification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// PartitionKey keeps every notification of one booking on one partition, in order
func (n *BookingNotification) PartitionKey() string {
	return n.BookingID.String()
}

func FromJSON(data []byte) (*BookingNotification, error) {
	var n BookingNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
