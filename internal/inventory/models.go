package inventory

import (
	"fmt"
	"time"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
)

type ReservationState string

const (
	StateHeld      ReservationState = "HELD"
	StateFinalized ReservationState = "FINALIZED"
	StateReleased  ReservationState = "RELEASED"
)

// Counter is the availability ledger row for one (event, category).
// Invariant: Available + Reserved + Sold == TotalCapacity and Available >= 0.
type Counter struct {
	EventID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"event_id"`
	CategoryID    string    `gorm:"primaryKey;size:64" json:"category_id"`
	TotalCapacity int       `gorm:"not null;check:total_capacity >= 0" json:"total_capacity"`
	Available     int       `gorm:"not null;check:available >= 0" json:"available"`
	Reserved      int       `gorm:"not null;default:0;check:reserved >= 0" json:"reserved"`
	Sold          int       `gorm:"not null;default:0;check:sold >= 0" json:"sold"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Reservation records a quantity held against a counter
type Reservation struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	EventID    uuid.UUID        `gorm:"type:uuid;index:idx_reservation_counter;not null" json:"event_id"`
	CategoryID string           `gorm:"size:64;index:idx_reservation_counter;not null" json:"category_id"`
	Quantity   int              `gorm:"not null;check:quantity > 0" json:"quantity"`
	State      ReservationState `gorm:"type:varchar(20);not null;check:state IN ('HELD', 'FINALIZED', 'RELEASED')" json:"state"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (Counter) TableName() string {
	return "inventory_counters"
}

func (Reservation) TableName() string {
	return "inventory_reservations"
}

// ReservationToken identifies one successful reserve call
type ReservationToken struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	CategoryID string    `json:"category_id"`
	Quantity   int       `json:"quantity"`
}

// Snapshot is a point-in-time view of a counter
type Snapshot struct {
	EventID       uuid.UUID `json:"event_id"`
	CategoryID    string    `json:"category_id"`
	TotalCapacity int       `json:"total_capacity"`
	Available     int       `json:"available"`
	Reserved      int       `json:"reserved"`
	Sold          int       `json:"sold"`
}

func (c *Counter) Snapshot() *Snapshot {
	return &Snapshot{
		EventID:       c.EventID,
		CategoryID:    c.CategoryID,
		TotalCapacity: c.TotalCapacity,
		Available:     c.Available,
		Reserved:      c.Reserved,
		Sold:          c.Sold,
	}
}

func counterNotFound(eventID uuid.UUID, categoryID string) error {
	return apperrors.NotFound("no inventory for category %s of event %s", categoryID, eventID)
}

func reservationNotFound(id uuid.UUID) error {
	return apperrors.NotFound("reservation %s not found", id)
}

func insufficient(categoryID string, available int) error {
	if available <= 0 {
		return apperrors.InsufficientInventory("%s is sold out", categoryID)
	}
	if available == 1 {
		return apperrors.InsufficientInventory("only 1 ticket left in %s", categoryID)
	}
	return apperrors.InsufficientInventory("only %d tickets left in %s", available, categoryID)
}

func conflictingState(id uuid.UUID, state ReservationState, op string) error {
	return apperrors.InvalidState("cannot %s reservation %s: already %s", op, id, state)
}

func counterKeyString(eventID uuid.UUID, categoryID string) string {
	return fmt.Sprintf("%s/%s", eventID, categoryID)
}
