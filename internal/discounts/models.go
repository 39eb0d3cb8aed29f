package discounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	TypePercentage DiscountType = "percentage"
	TypeFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	return t == TypePercentage || t == TypeFixed
}

type UseState string

const (
	UseActive   UseState = "ACTIVE"
	UseReleased UseState = "RELEASED"
)

// DiscountCode is stored upper-cased. Value is a percentage for percentage
// codes and an amount in minor units for fixed codes.
type DiscountCode struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Code             string            `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Type             DiscountType      `gorm:"type:varchar(20);not null;check:type IN ('percentage', 'fixed')" json:"type"`
	Value            decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"value"`
	ValidFrom        time.Time         `gorm:"not null" json:"valid_from"`
	ValidTill        time.Time         `gorm:"not null" json:"valid_till"`
	MaxUses          int               `gorm:"not null;default:0" json:"max_uses"`
	CurrentUses      int               `gorm:"not null;default:0;check:chk_discount_current_uses,current_uses >= 0 AND (max_uses <= 0 OR current_uses <= max_uses)" json:"current_uses"`
	ApplicableEvents []ApplicableEvent `gorm:"foreignKey:DiscountCodeID;constraint:OnDelete:CASCADE" json:"-"`
	MinTicketCount   int               `gorm:"not null;default:0" json:"min_ticket_count"`
	MinOrderValue    int64             `gorm:"not null;default:0" json:"min_order_value"`
	Active           bool              `gorm:"not null" json:"active"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ApplicableEvent restricts a code to one event. No rows means every event.
type ApplicableEvent struct {
	DiscountCodeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID        uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// DiscountUse is one counted use of a code, tied to the booking that reserved it
type DiscountUse struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DiscountCodeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"discount_code_id"`
	State          UseState   `gorm:"type:varchar(20);not null;check:state IN ('ACTIVE', 'RELEASED')" json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	ReleasedAt     *time.Time `json:"released_at,omitempty"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}

func (ApplicableEvent) TableName() string {
	return "discount_code_events"
}

func (DiscountUse) TableName() string {
	return "discount_uses"
}

func (d *DiscountCode) Unlimited() bool {
	return d.MaxUses <= 0
}

func (d *DiscountCode) AppliesTo(eventID uuid.UUID) bool {
	if len(d.ApplicableEvents) == 0 {
		return true
	}
	for _, e := range d.ApplicableEvents {
		if e.EventID == eventID {
			return true
		}
	}
	return false
}

// EventIDs lists the events the code is restricted to
func (d *DiscountCode) EventIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(d.ApplicableEvents))
	for i, e := range d.ApplicableEvents {
		ids[i] = e.EventID
	}
	return ids
}

// Quote is the price preview for one code against one order
type Quote struct {
	DiscountCodeID uuid.UUID       `json:"discount_code_id"`
	Code           string          `json:"code"`
	Type           DiscountType    `json:"type"`
	Value          decimal.Decimal `json:"value"`
	Subtotal       int64           `json:"subtotal"`
	DiscountAmount int64           `json:"discount_amount"`
	Total          int64           `json:"total"`
}

// UseToken identifies one reserved use of a code
type UseToken struct {
	ID             uuid.UUID `json:"id"`
	DiscountCodeID uuid.UUID `json:"discount_code_id"`
	Code           string    `json:"code"`
}

// NormalizeCode is the canonical stored form of a code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
