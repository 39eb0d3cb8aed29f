package database

import (
	"ticketbooth/internal/bookings"
	"ticketbooth/internal/discounts"
	"ticketbooth/internal/events"
	"ticketbooth/internal/inventory"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&events.Event{},
		&events.TicketCategory{},
		&inventory.Counter{},
		&inventory.Reservation{},
		&discounts.DiscountCode{},
		&discounts.ApplicableEvent{},
		&discounts.DiscountUse{},
		&bookings.Booking{},
		&bookings.LineItem{},
	)
}
