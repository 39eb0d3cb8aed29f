package bookings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ticketbooth/internal/discounts"
	"ticketbooth/internal/events"
	"ticketbooth/internal/inventory"
	"ticketbooth/internal/notifications"
	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/clock"
	"ticketbooth/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []notifications.BookingNotification
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, n *notifications.BookingNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, *n)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []notifications.NotificationType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Map(p.sent, func(n notifications.BookingNotification, _ int) notifications.NotificationType { return n.Type })
}

type harness struct {
	svc       Service
	repo      *MemoryRepository
	ledger    *inventory.Ledger
	engine    *discounts.Engine
	clock     *clock.Fake
	publisher *recordingPublisher
	event     *events.Event
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	gaCapacity int
	repo       Repository
	codes      []*discounts.DiscountCode
	wrapLedger func(InventoryLedger) InventoryLedger
}

func withGACapacity(n int) harnessOption {
	return func(c *harnessConfig) { c.gaCapacity = n }
}

func withCodes(codes ...*discounts.DiscountCode) harnessOption {
	return func(c *harnessConfig) { c.codes = append(c.codes, codes...) }
}

func withRepository(repo Repository) harnessOption {
	return func(c *harnessConfig) { c.repo = repo }
}

func withLedger(wrap func(InventoryLedger) InventoryLedger) harnessOption {
	return func(c *harnessConfig) { c.wrapLedger = wrap }
}

// flakyLedger fails settles while failSettles is set
type flakyLedger struct {
	InventoryLedger
	failSettles atomic.Bool
}

func (l *flakyLedger) Finalize(ctx context.Context, token inventory.ReservationToken) error {
	if l.failSettles.Load() {
		return errors.New("inventory store unavailable")
	}
	return l.InventoryLedger.Finalize(ctx, token)
}

func (l *flakyLedger) Release(ctx context.Context, token inventory.ReservationToken) error {
	if l.failSettles.Load() {
		return errors.New("inventory store unavailable")
	}
	return l.InventoryLedger.Release(ctx, token)
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := &harnessConfig{gaCapacity: 100}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()
	clk := clock.NewFake(testNow)
	log := logger.Discard()

	ledger := inventory.NewLedger(inventory.NewMemoryStore(), log)
	catalog := events.NewService(events.NewMemoryRepository(), ledger, nil, log)
	event := &events.Event{
		Name:     "Spring Gala",
		Venue:    "Main Hall",
		StartsAt: testNow.AddDate(0, 1, 0),
		Status:   events.StatusPublished,
		Categories: []events.TicketCategory{
			{ID: "GA", Name: "General Admission", UnitPrice: 5000, TotalCapacity: cfg.gaCapacity},
			{ID: "VIP", Name: "VIP", UnitPrice: 15000, TotalCapacity: 5},
		},
	}
	require.NoError(t, catalog.CreateEvent(ctx, event))

	engine := discounts.NewEngine(discounts.NewMemoryStore(), clk, log)
	for _, dc := range cfg.codes {
		require.NoError(t, engine.CreateCode(ctx, dc))
	}

	memRepo := NewMemoryRepository()
	repo := cfg.repo
	if repo == nil {
		repo = memRepo
	}
	publisher := &recordingPublisher{}

	var bookingLedger InventoryLedger = ledger
	if cfg.wrapLedger != nil {
		bookingLedger = cfg.wrapLedger(ledger)
	}

	svc := NewService(repo, catalog, bookingLedger, engine, publisher, clk, Options{
		HoldDuration:       10 * time.Minute,
		MaxTicketsPerOrder: 10,
		ExpiryBatchSize:    2,
	}, log)

	return &harness{
		svc:       svc,
		repo:      memRepo,
		ledger:    ledger,
		engine:    engine,
		clock:     clk,
		publisher: publisher,
		event:     event,
	}
}

func (h *harness) create(t *testing.T, items map[string]int, code string) *Booking {
	t.Helper()
	booking, err := h.svc.Create(context.Background(), h.input(items, code))
	require.NoError(t, err)
	return booking
}

func (h *harness) input(items map[string]int, code string) CreateInput {
	lineItems := make([]LineItemInput, 0, len(items))
	for _, category := range []string{"GA", "VIP"} {
		if qty, ok := items[category]; ok {
			lineItems = append(lineItems, LineItemInput{CategoryID: category, Quantity: qty})
		}
	}
	return CreateInput{
		EventID:      h.event.ID,
		LineItems:    lineItems,
		Customer:     CustomerInfo{Name: "Ada Lovelace", Email: "Ada@Example.com"},
		DiscountCode: code,
	}
}

func (h *harness) available(t *testing.T, category string) *inventory.Snapshot {
	t.Helper()
	snap, err := h.ledger.Availability(context.Background(), h.event.ID, category)
	require.NoError(t, err)
	return snap
}

func percentCode(code string, value int64, maxUses int) *discounts.DiscountCode {
	return &discounts.DiscountCode{
		Code:      code,
		Type:      discounts.TypePercentage,
		Value:     decimal.NewFromInt(value),
		ValidFrom: testNow.Add(-24 * time.Hour),
		ValidTill: testNow.Add(24 * time.Hour),
		MaxUses:   maxUses,
		Active:    true,
	}
}

func TestService_CreateHoldsInventory(t *testing.T) {
	h := newHarness(t)

	booking := h.create(t, map[string]int{"GA": 2, "VIP": 1}, "")

	assert.Equal(t, StatusPendingPayment, booking.Status)
	assert.Equal(t, testNow.Add(10*time.Minute), booking.ExpiresAt)
	assert.Equal(t, int64(2*5000+15000), booking.Subtotal)
	assert.Equal(t, booking.Subtotal, booking.TotalAmount)
	assert.Zero(t, booking.DiscountAmount)
	assert.Nil(t, booking.DiscountCode)
	assert.Equal(t, "ada@example.com", booking.CustomerEmail)
	assert.True(t, strings.HasPrefix(booking.Reference, "EVT-20260314-"), booking.Reference)
	require.Len(t, booking.LineItems, 2)
	assert.Equal(t, int64(5000), booking.LineItems[0].UnitPrice)

	ga := h.available(t, "GA")
	assert.Equal(t, 98, ga.Available)
	assert.Equal(t, 2, ga.Reserved)
	assert.Equal(t, 4, h.available(t, "VIP").Available)

	stored, err := h.svc.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.Reference, stored.Reference)
	assert.Equal(t, []notifications.NotificationType{notifications.TypeBookingCreated}, h.publisher.types())
}

func TestService_CreateRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		kind   apperrors.Kind
	}{
		{"no line items", func(in *CreateInput) { in.LineItems = nil }, apperrors.KindInvalidRequest},
		{"zero quantity", func(in *CreateInput) { in.LineItems[0].Quantity = 0 }, apperrors.KindInvalidRequest},
		{"duplicate category", func(in *CreateInput) {
			in.LineItems = append(in.LineItems, LineItemInput{CategoryID: "GA", Quantity: 1})
		}, apperrors.KindInvalidRequest},
		{"over the per order limit", func(in *CreateInput) { in.LineItems[0].Quantity = 11 }, apperrors.KindInvalidRequest},
		{"bad email", func(in *CreateInput) { in.Customer.Email = "not-an-email" }, apperrors.KindInvalidRequest},
		{"missing name", func(in *CreateInput) { in.Customer.Name = "" }, apperrors.KindInvalidRequest},
		{"unknown category", func(in *CreateInput) { in.LineItems[0].CategoryID = "BALCONY" }, apperrors.KindNotFound},
		{"unknown event", func(in *CreateInput) { in.EventID = uuid.New() }, apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := h.input(map[string]int{"GA": 1}, "")
			tt.mutate(&in)
			_, err := h.svc.Create(ctx, in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}

	assert.Equal(t, 100, h.available(t, "GA").Available)
}

func TestService_CreateLastSeatsUnderContention(t *testing.T) {
	h := newHarness(t, withGACapacity(2))
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		soldOuts int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Create(ctx, h.input(map[string]int{"GA": 1}, ""))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperrors.ErrInsufficientInventory):
				soldOuts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	assert.Equal(t, 1, soldOuts)
	ga := h.available(t, "GA")
	assert.Equal(t, 0, ga.Available)
	assert.Equal(t, 2, ga.Reserved)
}

func TestService_CreateLastDiscountUseUnderContention(t *testing.T) {
	for round := 0; round < 20; round++ {
		h := newHarness(t, withCodes(percentCode("SAVE10", 10, 1)))
		ctx := context.Background()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			winners  []*Booking
			rejected int
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				booking, err := h.svc.Create(ctx, h.input(map[string]int{"GA": 2}, "save10"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners = append(winners, booking)
				case errors.Is(err, apperrors.ErrUsageLimitReached):
					rejected++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		require.Len(t, winners, 1, "round %d", round)
		assert.Equal(t, 1, rejected, "round %d", round)
		assert.Equal(t, int64(1000), winners[0].DiscountAmount)
		assert.Equal(t, int64(9000), winners[0].TotalAmount)

		ga := h.available(t, "GA")
		assert.Equal(t, 98, ga.Available, "loser's seats go back")
		assert.Equal(t, 2, ga.Reserved)
	}
}

func TestService_CreateAppliesQuotedDiscount(t *testing.T) {
	h := newHarness(t, withCodes(percentCode("SAVE10", 10, 5)))
	ctx := context.Background()

	quote, err := h.engine.Quote(ctx, "save10", h.event.ID, 3, 3*5000)
	require.NoError(t, err)

	booking := h.create(t, map[string]int{"GA": 3}, "save10")

	require.NotNil(t, booking.DiscountCode)
	assert.Equal(t, "SAVE10", *booking.DiscountCode)
	assert.Equal(t, quote.DiscountAmount, booking.DiscountAmount)
	assert.Equal(t, quote.Total, booking.TotalAmount)
	assert.Equal(t, int64(13500), booking.TotalAmount)
	assert.NotNil(t, booking.DiscountUseID)
}

func TestService_CreateUndoesHoldsWhenDiscountFails(t *testing.T) {
	used := percentCode("ONCE", 10, 1)
	h := newHarness(t, withCodes(used))
	ctx := context.Background()

	h.create(t, map[string]int{"GA": 1}, "ONCE")

	_, err := h.svc.Create(ctx, h.input(map[string]int{"GA": 2, "VIP": 1}, "ONCE"))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDiscount, apperrors.KindOf(err))
	assert.Equal(t, apperrors.ReasonUsageLimitReached, apperrors.ReasonOf(err))

	_, err = h.svc.Create(ctx, h.input(map[string]int{"VIP": 1}, "NOSUCHCODE"))
	assert.Equal(t, apperrors.ReasonInvalidCode, apperrors.ReasonOf(err))

	ga := h.available(t, "GA")
	assert.Equal(t, 99, ga.Available)
	assert.Equal(t, 1, ga.Reserved)
	vip := h.available(t, "VIP")
	assert.Equal(t, 5, vip.Available)
	assert.Zero(t, vip.Reserved)
}

type failingCreateRepository struct {
	*MemoryRepository
}

func (failingCreateRepository) Create(context.Context, *Booking) error {
	return errors.New("connection reset by peer")
}

func TestService_CreateUndoesEverythingWhenPersistFails(t *testing.T) {
	h := newHarness(t,
		withCodes(percentCode("ONCE", 10, 1)),
		withRepository(failingCreateRepository{NewMemoryRepository()}),
	)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, h.input(map[string]int{"GA": 2, "VIP": 2}, "ONCE"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, 100, h.available(t, "GA").Available)
	assert.Equal(t, 5, h.available(t, "VIP").Available)

	_, err = h.engine.Quote(ctx, "ONCE", h.event.ID, 1, 5000)
	assert.NoError(t, err, "discount use should have been released")
	assert.Empty(t, h.publisher.types())
}

func TestService_CreateSurvivesPublisherOutage(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("kafka: client has run out of available brokers")

	booking := h.create(t, map[string]int{"GA": 1}, "")
	assert.Equal(t, StatusPendingPayment, booking.Status)
}

func TestService_SubmitPaymentReference(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	booking := h.create(t, map[string]int{"GA": 1}, "")

	h.clock.Advance(5 * time.Minute)
	updated, err := h.svc.SubmitPaymentReference(ctx, booking.ID, "  trx123456 ")
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingVerification, updated.Status)
	require.NotNil(t, updated.PaymentReference)
	assert.Equal(t, "TRX123456", *updated.PaymentReference)
	require.NotNil(t, updated.PaymentSubmittedAt)
	assert.Equal(t, testNow.Add(5*time.Minute), *updated.PaymentSubmittedAt)

	_, err = h.svc.SubmitPaymentReference(ctx, booking.ID, "TRX999999")
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	assert.Equal(t, []notifications.NotificationType{
		notifications.TypeBookingCreated,
		notifications.TypePaymentSubmitted,
	}, h.publisher.types())
}

func TestService_SubmitPaymentReferenceValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	booking := h.create(t, map[string]int{"GA": 1}, "")

	for _, ref := range []string{"", "   ", "ab12", "TRX-123456", strings.Repeat("A", 65)} {
		_, err := h.svc.SubmitPaymentReference(ctx, booking.ID, ref)
		assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err), "reference %q", ref)
	}

	_, err := h.svc.SubmitPaymentReference(ctx, uuid.New(), "TRX123456")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestService_DuplicatePaymentReference(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.create(t, map[string]int{"GA": 1}, "")
	second := h.create(t, map[string]int{"GA": 1}, "")

	_, err := h.svc.SubmitPaymentReference(ctx, first.ID, "TRX123456")
	require.NoError(t, err)

	_, err = h.svc.SubmitPaymentReference(ctx, second.ID, "trx123456")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateReference))

	stored, err := h.svc.GetBooking(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, stored.Status)

	// a rejected booking frees its reference
	_, err = h.svc.Verify(ctx, first.ID, DecisionReject, VerifyInput{AdminID: "admin-1", Reason: "no such transfer"})
	require.NoError(t, err)
	_, err = h.svc.SubmitPaymentReference(ctx, second.ID, "TRX123456")
	assert.NoError(t, err)
}

func TestService_SubmitAfterHoldExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	booking := h.create(t, map[string]int{"GA": 1}, "")

	h.clock.Advance(10 * time.Minute)
	_, err := h.svc.SubmitPaymentReference(ctx, booking.ID, "TRX123456")
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExpired))

	n, err := h.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "expires_at equal to now is not yet stale")

	h.clock.Advance(time.Second)
	n, err = h.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = h.svc.SubmitPaymentReference(ctx, booking.ID, "TRX123456")
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExpired))
}

func TestService_ExpireStaleRestoresAvailability(t *testing.T) {
	h := newHarness(t, withCodes(percentCode("ONCE", 10, 1)))
	ctx := context.Background()

	stale := h.create(t, map[string]int{"GA": 2}, "ONCE")
	h.create(t, map[string]int{"GA": 1}, "")
	h.create(t, map[string]int{"VIP": 1}, "")
	h.clock.Advance(5 * time.Minute)
	fresh := h.create(t, map[string]int{"GA": 1}, "")
	submitted := h.create(t, map[string]int{"VIP": 1}, "")
	_, err := h.svc.SubmitPaymentReference(ctx, submitted.ID, "TRX000001")
	require.NoError(t, err)

	h.clock.Advance(6 * time.Minute)
	n, err := h.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "batches of two must all be drained")

	got, err := h.svc.GetBooking(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	got, err = h.svc.GetBooking(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, got.Status)

	got, err = h.svc.GetBooking(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingVerification, got.Status)

	ga := h.available(t, "GA")
	assert.Equal(t, 99, ga.Available)
	assert.Equal(t, 1, ga.Reserved)
	vip := h.available(t, "VIP")
	assert.Equal(t, 4, vip.Available)
	assert.Equal(t, 1, vip.Reserved)

	_, err = h.engine.Quote(ctx, "ONCE", h.event.ID, 1, 5000)
	assert.NoError(t, err, "expired booking should give its discount use back")

	n, err = h.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, h.publisher.types(), notifications.TypeBookingExpired)
}

func TestService_VerifyAccept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	booking := h.create(t, map[string]int{"GA": 2}, "")
	_, err := h.svc.SubmitPaymentReference(ctx, booking.ID, "TRX123456")
	require.NoError(t, err)

	// verification is not bound by the payment hold
	h.clock.Advance(time.Hour)
	confirmed, err := h.svc.Verify(ctx, booking.ID, DecisionAccept, VerifyInput{AdminID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.VerifiedBy)
	assert.Equal(t, "admin-1", *confirmed.VerifiedBy)
	require.NotNil(t, confirmed.VerifiedAt)
	assert.Equal(t, testNow.Add(time.Hour), *confirmed.VerifiedAt)

	ga := h.available(t, "GA")
	assert.Equal(t, 98, ga.Available)
	assert.Zero(t, ga.Reserved)
	assert.Equal(t, 2, ga.Sold)

	_, err = h.svc.Verify(ctx, booking.ID, DecisionAccept, VerifyInput{AdminID: "admin-1"})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	n, err := h.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, h.publisher.types(), notifications.TypeTicketsDispatched)
}

func TestService_VerifyReject(t *testing.T) {
	h := newHarness(t, withCodes(percentCode("ONCE", 10, 1)))
	ctx := context.Background()
	booking := h.create(t, map[string]int{"GA": 2}, "ONCE")
	_, err := h.svc.SubmitPaymentReference(ctx, booking.ID, "TRX123456")
	require.NoError(t, err)

	rejected, err := h.svc.Verify(ctx, booking.ID, DecisionReject, VerifyInput{AdminID: "admin-1", Reason: "amount mismatch"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "amount mismatch", *rejected.RejectionReason)

	ga := h.available(t, "GA")
	assert.Equal(t, 100, ga.Available)
	assert.Zero(t, ga.Reserved)

	_, err = h.engine.Quote(ctx, "ONCE", h.event.ID, 1, 5000)
	assert.NoError(t, err)

	h.publisher.mu.Lock()
	last := h.publisher.sent[len(h.publisher.sent)-1]
	h.publisher.mu.Unlock()
	assert.Equal(t, notifications.TypeBookingRejected, last.Type)
	assert.Equal(t, "amount mismatch", last.Reason)
}

func TestService_ReconcileHoldsAfterFailedSettle(t *testing.T) {
	flaky := &flakyLedger{}
	h := newHarness(t, withCodes(percentCode("ONCE", 10, 1)), withLedger(func(l InventoryLedger) InventoryLedger {
		flaky.InventoryLedger = l
		return flaky
	}))
	ctx := context.Background()

	rejectedBooking := h.create(t, map[string]int{"GA": 2}, "ONCE")
	_, err := h.svc.SubmitPaymentReference(ctx, rejectedBooking.ID, "TRX900001")
	require.NoError(t, err)
	confirmedBooking := h.create(t, map[string]int{"VIP": 1}, "")
	_, err = h.svc.SubmitPaymentReference(ctx, confirmedBooking.ID, "TRX900002")
	require.NoError(t, err)

	flaky.failSettles.Store(true)
	_, err = h.svc.Verify(ctx, rejectedBooking.ID, DecisionReject, VerifyInput{AdminID: "admin-1", Reason: "no transfer"})
	require.NoError(t, err, "the decision stands even when settling fails")
	_, err = h.svc.Verify(ctx, confirmedBooking.ID, DecisionAccept, VerifyInput{AdminID: "admin-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, h.available(t, "GA").Reserved)
	assert.Equal(t, 1, h.available(t, "VIP").Reserved)

	settled, err := h.svc.ReconcileHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, settled, "store still down")

	flaky.failSettles.Store(false)
	settled, err = h.svc.ReconcileHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	ga := h.available(t, "GA")
	assert.Equal(t, 100, ga.Available)
	assert.Zero(t, ga.Reserved)
	vip := h.available(t, "VIP")
	assert.Zero(t, vip.Reserved)
	assert.Equal(t, 1, vip.Sold)

	stored, err := h.repo.GetByID(ctx, rejectedBooking.ID)
	require.NoError(t, err)
	assert.True(t, stored.HoldsSettled)

	settled, err = h.svc.ReconcileHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, settled)
}

func TestService_SettledBookingsSkipReconciliation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	booking := h.create(t, map[string]int{"GA": 1}, "")
	_, err := h.svc.SubmitPaymentReference(ctx, booking.ID, "TRX900003")
	require.NoError(t, err)
	_, err = h.svc.Verify(ctx, booking.ID, DecisionAccept, VerifyInput{AdminID: "admin-1"})
	require.NoError(t, err)

	stale := h.create(t, map[string]int{"GA": 1}, "")
	h.clock.Advance(11 * time.Minute)
	expired, err := h.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	unsettled, err := h.repo.ListUnsettled(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unsettled)

	stored, err := h.repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.True(t, stored.HoldsSettled)
}

func TestService_VerifyRequiresAwaitingVerification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	booking := h.create(t, map[string]int{"GA": 1}, "")

	_, err := h.svc.Verify(ctx, booking.ID, DecisionAccept, VerifyInput{AdminID: "admin-1"})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = h.svc.Verify(ctx, booking.ID, Decision("maybe"), VerifyInput{AdminID: "admin-1"})
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	_, err = h.svc.Verify(ctx, uuid.New(), DecisionAccept, VerifyInput{AdminID: "admin-1"})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestService_ConcurrentDecisionsSettleOnce(t *testing.T) {
	h := newHarness(t, withGACapacity(3))
	ctx := context.Background()
	booking := h.create(t, map[string]int{"GA": 3}, "")
	_, err := h.svc.SubmitPaymentReference(ctx, booking.ID, "TRX123456")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []Decision
	)
	for _, d := range []Decision{DecisionAccept, DecisionReject, DecisionAccept, DecisionReject} {
		wg.Add(1)
		go func(d Decision) {
			defer wg.Done()
			if _, err := h.svc.Verify(ctx, booking.ID, d, VerifyInput{AdminID: "admin", Reason: "race"}); err == nil {
				mu.Lock()
				wins = append(wins, d)
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()

	require.Len(t, wins, 1)
	ga := h.available(t, "GA")
	assert.Zero(t, ga.Reserved)
	assert.Equal(t, 3, ga.Available+ga.Sold)
	if wins[0] == DecisionAccept {
		assert.Equal(t, 3, ga.Sold)
	} else {
		assert.Equal(t, 3, ga.Available)
	}
}

func TestService_ListAwaitingVerification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i, ref := range []string{"TRX000001", "TRX000002"} {
		b := h.create(t, map[string]int{"GA": i + 1}, "")
		_, err := h.svc.SubmitPaymentReference(ctx, b.ID, ref)
		require.NoError(t, err)
	}
	h.create(t, map[string]int{"GA": 1}, "")

	list, total, err := h.svc.ListAwaitingVerification(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = h.svc.ListAwaitingVerification(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)
}
