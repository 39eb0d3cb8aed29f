package events

import "time"

type CreateEventRequest struct {
	Name        string                  `json:"name" binding:"required,min=3,max=255"`
	Description string                  `json:"description" binding:"max=2000"`
	Venue       string                  `json:"venue" binding:"required,max=255"`
	StartsAt    time.Time               `json:"starts_at" binding:"required"`
	Publish     bool                    `json:"publish"`
	Categories  []TicketCategoryRequest `json:"categories" binding:"required,min=1,dive"`
}

type TicketCategoryRequest struct {
	ID            string `json:"id" binding:"required,max=64"`
	Name          string `json:"name" binding:"required,max=255"`
	UnitPrice     int64  `json:"unit_price" binding:"min=0"`
	TotalCapacity int    `json:"total_capacity" binding:"required,min=1"`
}
