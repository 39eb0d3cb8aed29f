package discounts

import "time"

type QuoteRequest struct {
	Code        string `json:"code" binding:"required,max=64"`
	EventID     string `json:"event_id" binding:"required,uuid"`
	TicketCount int    `json:"ticket_count" binding:"required,min=1"`
	Subtotal    int64  `json:"subtotal" binding:"min=0"`
}

type CreateDiscountCodeRequest struct {
	Code               string    `json:"code" binding:"required,max=64"`
	Type               string    `json:"type" binding:"required,oneof=percentage fixed"`
	Value              string    `json:"value" binding:"required"`
	ValidFrom          time.Time `json:"valid_from" binding:"required"`
	ValidTill          time.Time `json:"valid_till" binding:"required"`
	MaxUses            int       `json:"max_uses" binding:"min=0"`
	ApplicableEventIDs []string  `json:"applicable_event_ids" binding:"omitempty,dive,uuid"`
	MinTicketCount     int       `json:"min_ticket_count" binding:"min=0"`
	MinOrderValue      int64     `json:"min_order_value" binding:"min=0"`
	Active             *bool     `json:"active"`
}
