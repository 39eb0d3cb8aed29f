package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketbooth/internal/discounts"
	"ticketbooth/internal/events"
	"ticketbooth/internal/inventory"
	"ticketbooth/internal/notifications"
	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/clock"
	"ticketbooth/pkg/logger"
	"ticketbooth/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// InventoryLedger is the subset of the inventory ledger bookings drive
type InventoryLedger interface {
	Reserve(ctx context.Context, eventID uuid.UUID, categoryID string, quantity int) (*inventory.ReservationToken, error)
	Finalize(ctx context.Context, token inventory.ReservationToken) error
	Release(ctx context.Context, token inventory.ReservationToken) error
}

// DiscountEngine prices and counts discount codes
type DiscountEngine interface {
	Quote(ctx context.Context, code string, eventID uuid.UUID, ticketCount int, subtotal int64) (*discounts.Quote, error)
	ReserveUse(ctx context.Context, code string) (*discounts.UseToken, error)
	ReleaseUse(ctx context.Context, token discounts.UseToken) error
}

// Service owns the booking lifecycle
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Booking, error)
	SubmitPaymentReference(ctx context.Context, bookingID uuid.UUID, reference string) (*Booking, error)
	Verify(ctx context.Context, bookingID uuid.UUID, decision Decision, input VerifyInput) (*Booking, error)
	// ExpireStale expires every PENDING_PAYMENT booking past its expires_at and returns how many it expired
	ExpireStale(ctx context.Context) (int, error)
	// ReconcileHolds settles the holds of terminal bookings whose settlement failed earlier
	ReconcileHolds(ctx context.Context) (int, error)

	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	ListAwaitingVerification(ctx context.Context, limit, offset int) ([]Booking, int64, error)
}

// Options tunes the state machine
type Options struct {
	HoldDuration       time.Duration
	MaxTicketsPerOrder int
	ExpiryBatchSize    int
}

func DefaultOptions() Options {
	return Options{
		HoldDuration:       10 * time.Minute,
		MaxTicketsPerOrder: 10,
		ExpiryBatchSize:    100,
	}
}

type service struct {
	repo      Repository
	catalog   events.Catalog
	ledger    InventoryLedger
	discounts DiscountEngine
	publisher notifications.Publisher
	clock     clock.Clock
	validate  *validator.Validate
	opts      Options
	log       *logger.Logger
}

func NewService(
	repo Repository,
	catalog events.Catalog,
	ledger InventoryLedger,
	discountEngine DiscountEngine,
	publisher notifications.Publisher,
	clk clock.Clock,
	opts Options,
	log *logger.Logger,
) Service {
	defaults := DefaultOptions()
	if opts.HoldDuration <= 0 {
		opts.HoldDuration = defaults.HoldDuration
	}
	if opts.MaxTicketsPerOrder <= 0 {
		opts.MaxTicketsPerOrder = defaults.MaxTicketsPerOrder
	}
	if opts.ExpiryBatchSize <= 0 {
		opts.ExpiryBatchSize = defaults.ExpiryBatchSize
	}
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}
	if clk == nil {
		clk = clock.System()
	}

	return &service{
		repo:      repo,
		catalog:   catalog,
		ledger:    ledger,
		discounts: discountEngine,
		publisher: publisher,
		clock:     clk,
		validate:  validator.New(),
		opts:      opts,
		log:       logger.OrDefault(log).WithComponent("bookings"),
	}
}

// Create reserves inventory for every line item, applies the discount and
// persists the booking. Any failure undoes every step already taken.
func (s *service) Create(ctx context.Context, input CreateInput) (*Booking, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	event, err := s.catalog.GetEvent(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsBookable() {
		return nil, apperrors.InvalidRequest("event %s is not open for booking", event.ID)
	}

	lineItems := make([]LineItem, len(input.LineItems))
	for i, item := range input.LineItems {
		category, ok := event.Category(item.CategoryID)
		if !ok {
			return nil, apperrors.NotFound("ticket category %s not found for event %s", item.CategoryID, event.ID)
		}
		lineItems[i] = LineItem{
			ID:         uuid.New(),
			Position:   i,
			CategoryID: category.ID,
			Quantity:   item.Quantity,
			UnitPrice:  category.UnitPrice,
		}
	}

	var undo compensations
	fail := func(err error) (*Booking, error) {
		undo.run(ctx, s.log)
		return nil, err
	}

	for i := range lineItems {
		token, err := s.ledger.Reserve(ctx, event.ID, lineItems[i].CategoryID, lineItems[i].Quantity)
		if err != nil {
			return fail(err)
		}
		lineItems[i].ReservationID = token.ID
		undo.add("release inventory", token.ID.String(), func(ctx context.Context) error {
			return s.ledger.Release(ctx, *token)
		})
	}

	subtotal := lo.SumBy(lineItems, func(li LineItem) int64 { return li.Amount() })
	ticketCount := lo.SumBy(lineItems, func(li LineItem) int { return li.Quantity })

	booking := &Booking{
		ID:            uuid.New(),
		EventID:       event.ID,
		LineItems:     lineItems,
		Subtotal:      subtotal,
		CustomerName:  strings.TrimSpace(input.Customer.Name),
		CustomerEmail: strings.ToLower(strings.TrimSpace(input.Customer.Email)),
		CustomerPhone: strings.TrimSpace(input.Customer.Phone),
		Status:        StatusPendingPayment,
	}

	if code := strings.TrimSpace(input.DiscountCode); code != "" {
		quote, err := s.discounts.Quote(ctx, code, event.ID, ticketCount, subtotal)
		if err != nil {
			return fail(err)
		}
		use, err := s.discounts.ReserveUse(ctx, quote.Code)
		if err != nil {
			return fail(err)
		}
		undo.add("release discount use", use.ID.String(), func(ctx context.Context) error {
			return s.discounts.ReleaseUse(ctx, *use)
		})

		booking.DiscountCode = lo.ToPtr(quote.Code)
		booking.DiscountCodeID = lo.ToPtr(use.DiscountCodeID)
		booking.DiscountUseID = lo.ToPtr(use.ID)
		booking.DiscountAmount = quote.DiscountAmount
	}

	booking.TotalAmount = max(booking.Subtotal-booking.DiscountAmount, 0)

	now := s.clock.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.ExpiresAt = now.Add(s.opts.HoldDuration)
	for i := range booking.LineItems {
		booking.LineItems[i].BookingID = booking.ID
	}

	booking.Reference, err = generateBookingReference(now)
	if err != nil {
		return fail(apperrors.Internal(err, "failed to generate booking reference"))
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return fail(fmt.Errorf("failed to create booking: %w", err))
	}

	metrics.BookingTransition(string(StatusPendingPayment))
	s.log.LogBookingCreated(ctx, booking.ID.String(), booking.EventID.String(), booking.TotalAmount)
	s.publish(ctx, booking, notifications.TypeBookingCreated, "")
	return booking, nil
}

// SubmitPaymentReference attaches a transfer reference and hands the booking to verification
func (s *service) SubmitPaymentReference(ctx context.Context, bookingID uuid.UUID, reference string) (*Booking, error) {
	reference = NormalizePaymentReference(reference)
	if err := s.validate.Var(reference, "required,min=6,max=64,alphanum"); err != nil {
		return nil, apperrors.InvalidRequest("payment reference must be 6 to 64 letters or digits")
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.checkSubmittable(booking, now); err != nil {
		return nil, err
	}

	holder, err := s.repo.FindByActivePaymentReference(ctx, reference)
	switch {
	case err == nil && holder.ID != booking.ID:
		return nil, apperrors.DuplicateReference("payment reference %s is attached to booking %s", reference, holder.ID)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	ok, err := s.repo.Transition(ctx, TransitionRequest{
		BookingID:        booking.ID,
		From:             StatusPendingPayment,
		To:               StatusAwaitingVerification,
		At:               now,
		RequireUnexpired: true,
		PaymentReference: reference,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.lostRace(ctx, booking.ID, now)
	}

	updated, err := s.repo.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, updated, StatusPendingPayment, notifications.TypePaymentSubmitted, "")
	return updated, nil
}

// Verify applies the admin decision to a booking awaiting verification
func (s *service) Verify(ctx context.Context, bookingID uuid.UUID, decision Decision, input VerifyInput) (*Booking, error) {
	if !decision.IsValid() {
		return nil, apperrors.InvalidRequest("decision must be accept or reject")
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != StatusAwaitingVerification {
		return nil, apperrors.InvalidState("booking %s is %s, not awaiting verification", booking.ID, booking.Status)
	}

	target := StatusConfirmed
	if decision == DecisionReject {
		target = StatusRejected
	}

	ok, err := s.repo.Transition(ctx, TransitionRequest{
		BookingID:       booking.ID,
		From:            StatusAwaitingVerification,
		To:              target,
		At:              s.clock.Now(),
		VerifiedBy:      input.AdminID,
		RejectionReason: strings.TrimSpace(input.Reason),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState("booking %s is %s, not awaiting verification", current.ID, current.Status)
	}

	s.settleHolds(ctx, booking, target)

	updated, err := s.repo.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if target == StatusConfirmed {
		s.transitioned(ctx, updated, StatusAwaitingVerification, notifications.TypeTicketsDispatched, "")
	} else {
		s.transitioned(ctx, updated, StatusAwaitingVerification, notifications.TypeBookingRejected, input.Reason)
	}
	return updated, nil
}

func (s *service) ExpireStale(ctx context.Context) (int, error) {
	start := time.Now()
	now := s.clock.Now()
	expired := 0

	for {
		batch, err := s.repo.ListExpiredPending(ctx, now, s.opts.ExpiryBatchSize)
		if err != nil {
			return expired, fmt.Errorf("failed to list stale bookings: %w", err)
		}

		progressed := 0
		for i := range batch {
			booking := &batch[i]
			ok, err := s.repo.Transition(ctx, TransitionRequest{
				BookingID:      booking.ID,
				From:           StatusPendingPayment,
				To:             StatusExpired,
				At:             now,
				RequireExpired: true,
			})
			if err != nil {
				return expired, fmt.Errorf("failed to expire booking %s: %w", booking.ID, err)
			}
			if !ok {
				// submitted or expired by a concurrent caller
				continue
			}
			progressed++
			expired++

			s.settleHolds(ctx, booking, StatusExpired)
			booking.Status = StatusExpired
			booking.UpdatedAt = now
			s.transitioned(ctx, booking, StatusPendingPayment, notifications.TypeBookingExpired, "")
		}

		if len(batch) < s.opts.ExpiryBatchSize || progressed == 0 {
			break
		}
	}

	elapsed := time.Since(start)
	metrics.ObserveExpirySweep(elapsed.Seconds())
	s.log.LogExpirySweep(ctx, expired, elapsed)
	return expired, nil
}

func (s *service) ReconcileHolds(ctx context.Context) (int, error) {
	batch, err := s.repo.ListUnsettled(ctx, s.opts.ExpiryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unsettled bookings: %w", err)
	}

	settled := 0
	for i := range batch {
		if s.settleHolds(ctx, &batch[i], batch[i].Status) {
			settled++
		}
	}
	if settled > 0 {
		s.log.InfoContext(ctx, "Booking Holds Reconciled", "settled", settled, "pending", len(batch)-settled)
	}
	return settled, nil
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) ListAwaitingVerification(ctx context.Context, limit, offset int) ([]Booking, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByStatus(ctx, StatusAwaitingVerification, limit, offset)
}

// NormalizePaymentReference is the form references are stored and compared in
func NormalizePaymentReference(reference string) string {
	return strings.ToUpper(strings.TrimSpace(reference))
}

func (s *service) validateCreate(input CreateInput) error {
	if input.EventID == uuid.Nil {
		return apperrors.InvalidRequest("event_id is required")
	}
	if len(input.LineItems) == 0 {
		return apperrors.InvalidRequest("at least one line item is required")
	}

	seen := make(map[string]bool, len(input.LineItems))
	total := 0
	for _, item := range input.LineItems {
		if item.CategoryID == "" {
			return apperrors.InvalidRequest("category_id is required")
		}
		if item.Quantity <= 0 {
			return apperrors.InvalidRequest("quantity for %s must be positive", item.CategoryID)
		}
		if seen[item.CategoryID] {
			return apperrors.InvalidRequest("category %s is listed more than once", item.CategoryID)
		}
		seen[item.CategoryID] = true
		total += item.Quantity
	}
	if total > s.opts.MaxTicketsPerOrder {
		return apperrors.InvalidRequest("at most %d tickets can be booked at once", s.opts.MaxTicketsPerOrder)
	}

	if err := s.validate.Struct(input.Customer); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			return apperrors.InvalidRequest("customer %s is invalid", strings.ToLower(validationErrs[0].Field()))
		}
		return apperrors.InvalidRequest("customer details are invalid")
	}
	return nil
}

func (s *service) checkSubmittable(booking *Booking, now time.Time) error {
	switch {
	case booking.Status == StatusExpired:
		return apperrors.AlreadyExpired("booking %s has expired", booking.ID)
	case booking.Status != StatusPendingPayment:
		return apperrors.InvalidState("booking %s is %s", booking.ID, booking.Status)
	case !now.Before(booking.ExpiresAt):
		return apperrors.AlreadyExpired("booking %s expired at %s", booking.ID, booking.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// lostRace explains why a conditional submit transition matched no row
func (s *service) lostRace(ctx context.Context, bookingID uuid.UUID, now time.Time) error {
	current, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.checkSubmittable(current, now); err != nil {
		return err
	}
	return apperrors.InvalidState("booking %s changed concurrently", bookingID)
}

// settleHolds finalizes or releases the holds of a booking that reached status and
// records success. A failed settle leaves the booking for ReconcileHolds.
func (s *service) settleHolds(ctx context.Context, booking *Booking, status Status) bool {
	ctx = context.WithoutCancel(ctx)

	var ok bool
	switch status {
	case StatusConfirmed:
		ok = s.finalizeInventory(ctx, booking)
	case StatusRejected, StatusExpired:
		ok = s.releaseHolds(ctx, booking)
	default:
		return false
	}
	if !ok {
		return false
	}
	if err := s.repo.MarkHoldsSettled(ctx, booking.ID); err != nil {
		s.log.LogCompensationFailed(ctx, "mark holds settled", booking.ID.String(), err)
		return false
	}
	return true
}

func (s *service) finalizeInventory(ctx context.Context, booking *Booking) bool {
	ok := true
	for _, token := range booking.ReservationTokens() {
		if err := s.ledger.Finalize(ctx, token); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			s.log.LogCompensationFailed(ctx, "finalize inventory", token.ID.String(), err)
			ok = false
		}
	}
	return ok
}

// releaseHolds returns inventory and the discount use of a booking that will never be paid
func (s *service) releaseHolds(ctx context.Context, booking *Booking) bool {
	ok := true
	for _, token := range booking.ReservationTokens() {
		if err := s.ledger.Release(ctx, token); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			s.log.LogCompensationFailed(ctx, "release inventory", token.ID.String(), err)
			ok = false
		}
	}
	if booking.DiscountUseID != nil {
		use := discounts.UseToken{ID: *booking.DiscountUseID}
		if booking.DiscountCodeID != nil {
			use.DiscountCodeID = *booking.DiscountCodeID
		}
		if err := s.discounts.ReleaseUse(ctx, use); err != nil {
			s.log.LogCompensationFailed(ctx, "release discount use", use.ID.String(), err)
			ok = false
		}
	}
	return ok
}

func (s *service) transitioned(ctx context.Context, booking *Booking, from Status, kind notifications.NotificationType, reason string) {
	metrics.BookingTransition(string(booking.Status))
	s.log.LogBookingTransition(ctx, booking.ID.String(), string(from), string(booking.Status))
	s.publish(ctx, booking, kind, reason)
}

// publish is best effort; a broker outage never fails a transition
func (s *service) publish(ctx context.Context, booking *Booking, kind notifications.NotificationType, reason string) {
	notification := &notifications.BookingNotification{
		ID:            uuid.New(),
		Type:          kind,
		BookingID:     booking.ID,
		Reference:     booking.Reference,
		EventID:       booking.EventID,
		Status:        string(booking.Status),
		CustomerName:  booking.CustomerName,
		CustomerEmail: booking.CustomerEmail,
		CustomerPhone: booking.CustomerPhone,
		TotalAmount:   booking.TotalAmount,
		Reason:        reason,
		OccurredAt:    s.clock.Now(),
	}
	if booking.PaymentReference != nil {
		notification.PaymentReference = *booking.PaymentReference
	}
	if err := s.publisher.Publish(ctx, notification); err != nil {
		s.log.WarnContext(ctx, "failed to publish booking notification",
			"booking_id", booking.ID.String(), "type", string(kind), "error", err.Error())
	}
}

type compensation struct {
	action string
	id     string
	fn     func(context.Context) error
}

// compensations undoes completed saga steps in reverse order
type compensations []compensation

func (c *compensations) add(action, id string, fn func(context.Context) error) {
	*c = append(*c, compensation{action: action, id: id, fn: fn})
}

func (c compensations) run(ctx context.Context, log *logger.Logger) {
	ctx = context.WithoutCancel(ctx)
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].fn(ctx); err != nil {
			log.LogCompensationFailed(ctx, c[i].action, c[i].id, err)
		}
	}
}
