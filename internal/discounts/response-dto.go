package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type QuoteResponse struct {
	Code           string       `json:"code"`
	Type           DiscountType `json:"type"`
	Value          string       `json:"value"`
	Subtotal       int64        `json:"subtotal"`
	DiscountAmount int64        `json:"discount_amount"`
	Total          int64        `json:"total"`
}

type DiscountCodeResponse struct {
	ID                 uuid.UUID    `json:"id"`
	Code               string       `json:"code"`
	Type               DiscountType `json:"type"`
	Value              string       `json:"value"`
	ValidFrom          time.Time    `json:"valid_from"`
	ValidTill          time.Time    `json:"valid_till"`
	MaxUses            int          `json:"max_uses"`
	CurrentUses        int          `json:"current_uses"`
	ApplicableEventIDs []string     `json:"applicable_event_ids"`
	MinTicketCount     int          `json:"min_ticket_count"`
	MinOrderValue      int64        `json:"min_order_value"`
	Active             bool         `json:"active"`
}

func ToQuoteResponse(q *Quote) QuoteResponse {
	return QuoteResponse{
		Code:           q.Code,
		Type:           q.Type,
		Value:          q.Value.String(),
		Subtotal:       q.Subtotal,
		DiscountAmount: q.DiscountAmount,
		Total:          q.Total,
	}
}

func ToDiscountCodeResponse(d *DiscountCode) DiscountCodeResponse {
	return DiscountCodeResponse{
		ID:          d.ID,
		Code:        d.Code,
		Type:        d.Type,
		Value:       d.Value.String(),
		ValidFrom:   d.ValidFrom,
		ValidTill:   d.ValidTill,
		MaxUses:     d.MaxUses,
		CurrentUses: d.CurrentUses,
		ApplicableEventIDs: lo.Map(d.ApplicableEvents, func(e ApplicableEvent, _ int) string {
			return e.EventID.String()
		}),
		MinTicketCount: d.MinTicketCount,
		MinOrderValue:  d.MinOrderValue,
		Active:         d.Active,
	}
}
