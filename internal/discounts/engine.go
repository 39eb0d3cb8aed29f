package discounts

import (
	"context"
	"errors"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/clock"
	"ticketbooth/pkg/logger"
	"ticketbooth/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists codes and owns the atomic use counter
type Store interface {
	Create(ctx context.Context, code *DiscountCode) error
	GetByCode(ctx context.Context, code string) (*DiscountCode, error)
	// ReserveUse increments current_uses only while below max_uses
	ReserveUse(ctx context.Context, codeID uuid.UUID, use *DiscountUse) error
	// ReleaseUse decrements current_uses once per use; repeats are no-ops
	ReleaseUse(ctx context.Context, useID uuid.UUID) error
}

var hundred = decimal.NewFromInt(100)

type Engine struct {
	store Store
	clock clock.Clock
	log   *logger.Logger
}

func NewEngine(store Store, clk clock.Clock, log *logger.Logger) *Engine {
	if clk == nil {
		clk = clock.System()
	}
	return &Engine{
		store: store,
		clock: clk,
		log:   logger.OrDefault(log).WithComponent("discounts"),
	}
}

// Quote prices a code against an order without consuming a use
func (e *Engine) Quote(ctx context.Context, code string, eventID uuid.UUID, ticketCount int, subtotal int64) (*Quote, error) {
	if ticketCount <= 0 {
		return nil, apperrors.InvalidRequest("ticket count must be positive")
	}
	if subtotal < 0 {
		return nil, apperrors.InvalidRequest("subtotal must not be negative")
	}

	dc, err := e.lookup(ctx, code)
	if err != nil {
		return nil, e.rejected(ctx, code, eventID, err)
	}
	if err := e.checkEligibility(dc, eventID, ticketCount, subtotal); err != nil {
		return nil, e.rejected(ctx, dc.Code, eventID, err)
	}

	amount := Amount(dc.Type, dc.Value, subtotal)
	return &Quote{
		DiscountCodeID: dc.ID,
		Code:           dc.Code,
		Type:           dc.Type,
		Value:          dc.Value,
		Subtotal:       subtotal,
		DiscountAmount: amount,
		Total:          subtotal - amount,
	}, nil
}

// ReserveUse counts one use of the code
func (e *Engine) ReserveUse(ctx context.Context, code string) (*UseToken, error) {
	dc, err := e.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	use := &DiscountUse{
		ID:             uuid.New(),
		DiscountCodeID: dc.ID,
		State:          UseActive,
		CreatedAt:      e.clock.Now(),
	}
	if err := e.store.ReserveUse(ctx, dc.ID, use); err != nil {
		return nil, e.rejected(ctx, dc.Code, uuid.Nil, err)
	}
	return &UseToken{ID: use.ID, DiscountCodeID: dc.ID, Code: dc.Code}, nil
}

// ReleaseUse gives back a reserved use. Releasing the same token twice is a no-op.
func (e *Engine) ReleaseUse(ctx context.Context, token UseToken) error {
	return e.store.ReleaseUse(ctx, token.ID)
}

// CreateCode validates and stores a new code
func (e *Engine) CreateCode(ctx context.Context, dc *DiscountCode) error {
	dc.Code = NormalizeCode(dc.Code)
	if dc.Code == "" {
		return apperrors.InvalidRequest("code is required")
	}
	if !dc.Type.IsValid() {
		return apperrors.InvalidRequest("discount type must be percentage or fixed")
	}
	if !dc.Value.IsPositive() {
		return apperrors.InvalidRequest("discount value must be positive")
	}
	if dc.Type == TypePercentage && dc.Value.GreaterThan(hundred) {
		return apperrors.InvalidRequest("percentage discount cannot exceed 100")
	}
	if dc.Type == TypeFixed && !dc.Value.IsInteger() {
		return apperrors.InvalidRequest("fixed discount must be in whole minor units")
	}
	if !dc.ValidTill.After(dc.ValidFrom) {
		return apperrors.InvalidRequest("valid_till must be after valid_from")
	}
	if dc.MinTicketCount < 0 || dc.MinOrderValue < 0 {
		return apperrors.InvalidRequest("minimums must not be negative")
	}
	if dc.ID == uuid.Nil {
		dc.ID = uuid.New()
	}
	for i := range dc.ApplicableEvents {
		dc.ApplicableEvents[i].DiscountCodeID = dc.ID
	}
	dc.CurrentUses = 0

	if err := e.store.Create(ctx, dc); err != nil {
		return err
	}
	e.log.InfoContext(ctx, "Discount Code Created", "code", dc.Code, "type", string(dc.Type), "max_uses", dc.MaxUses)
	return nil
}

// Amount is the discount for subtotal, never more than subtotal
func Amount(t DiscountType, value decimal.Decimal, subtotal int64) int64 {
	var amount int64
	switch t {
	case TypePercentage:
		amount = decimal.NewFromInt(subtotal).Mul(value).Div(hundred).Round(0).IntPart()
	case TypeFixed:
		amount = value.Round(0).IntPart()
	}
	if amount > subtotal {
		return subtotal
	}
	if amount < 0 {
		return 0
	}
	return amount
}

func (e *Engine) lookup(ctx context.Context, code string) (*DiscountCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, apperrors.Discount(apperrors.ReasonInvalidCode, "code not recognised")
	}
	dc, err := e.store.GetByCode(ctx, normalized)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Discount(apperrors.ReasonInvalidCode, "code %s not recognised", normalized)
	}
	if err != nil {
		return nil, err
	}
	return dc, nil
}

func (e *Engine) checkEligibility(dc *DiscountCode, eventID uuid.UUID, ticketCount int, subtotal int64) error {
	now := e.clock.Now()
	switch {
	case !dc.Active:
		return apperrors.Discount(apperrors.ReasonInactive, "code %s is no longer active", dc.Code)
	case now.Before(dc.ValidFrom):
		return apperrors.Discount(apperrors.ReasonNotYetValid, "code %s is not active yet", dc.Code)
	case now.After(dc.ValidTill):
		return apperrors.Discount(apperrors.ReasonExpired, "code %s expired", dc.Code)
	case !dc.AppliesTo(eventID):
		return apperrors.Discount(apperrors.ReasonNotApplicableToEvent, "code %s cannot be used for this event", dc.Code)
	case !dc.Unlimited() && dc.CurrentUses >= dc.MaxUses:
		return apperrors.Discount(apperrors.ReasonUsageLimitReached, "code %s has reached its usage limit", dc.Code)
	case ticketCount < dc.MinTicketCount:
		return apperrors.Discount(apperrors.ReasonBelowMinimumTickets, "code %s needs at least %d tickets", dc.Code, dc.MinTicketCount)
	case subtotal < dc.MinOrderValue:
		return apperrors.Discount(apperrors.ReasonBelowMinimumOrderValue, "code %s needs an order of at least %d", dc.Code, dc.MinOrderValue)
	}
	return nil
}

func (e *Engine) rejected(ctx context.Context, code string, eventID uuid.UUID, err error) error {
	if reason := apperrors.ReasonOf(err); reason != "" {
		metrics.DiscountRejected(string(reason))
		e.log.LogDiscountRejected(ctx, code, eventID.String(), err)
	}
	return err
}
