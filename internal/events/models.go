package events

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID          uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string           `json:"name" gorm:"not null;size:255"`
	Description string           `json:"description" gorm:"type:text"`
	Venue       string           `json:"venue" gorm:"not null;size:255"`
	StartsAt    time.Time        `json:"starts_at" gorm:"not null"`
	Status      EventStatus      `json:"status" gorm:"type:varchar(20);default:'draft'"`
	Categories  []TicketCategory `json:"categories" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE;"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TicketCategory is one priced section of an event. UnitPrice is in minor currency units.
type TicketCategory struct {
	EventID       uuid.UUID `json:"event_id" gorm:"type:uuid;primaryKey"`
	ID            string    `json:"id" gorm:"primaryKey;size:64"`
	Name          string    `json:"name" gorm:"not null;size:255"`
	UnitPrice     int64     `json:"unit_price" gorm:"not null;check:unit_price >= 0"`
	TotalCapacity int       `json:"total_capacity" gorm:"not null;check:total_capacity > 0"`
}

func (Event) TableName() string {
	return "events"
}

func (TicketCategory) TableName() string {
	return "ticket_categories"
}

// Category looks up a category of the event by id
func (e *Event) Category(categoryID string) (*TicketCategory, bool) {
	for i := range e.Categories {
		if e.Categories[i].ID == categoryID {
			return &e.Categories[i], true
		}
	}
	return nil, false
}

func (e *Event) IsBookable() bool {
	return e.Status == StatusPublished
}

// EventResponse is the public view of an event with live availability
type EventResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Venue      string             `json:"venue"`
	StartsAt   time.Time          `json:"starts_at"`
	Status     EventStatus        `json:"status"`
	Categories []CategoryResponse `json:"categories"`
}

type CategoryResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UnitPrice     int64  `json:"unit_price"`
	TotalCapacity int    `json:"total_capacity"`
	Available     int    `json:"available"`
}
