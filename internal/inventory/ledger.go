package inventory

import (
	"context"
	"errors"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/pkg/logger"
	"ticketbooth/pkg/metrics"

	"github.com/google/uuid"
)

// Store is the atomic-update primitive behind the ledger. Every method must be
// a single atomic step against the backing store.
type Store interface {
	// Provision creates the counter if absent and reports whether it did
	Provision(ctx context.Context, eventID uuid.UUID, categoryID string, capacity int) (bool, error)
	// Reserve decrements available by token.Quantity only if enough is left
	Reserve(ctx context.Context, token ReservationToken) error
	Finalize(ctx context.Context, token ReservationToken) error
	Release(ctx context.Context, token ReservationToken) error
	Snapshot(ctx context.Context, eventID uuid.UUID, categoryID string) (*Snapshot, error)
}

// Ledger is the only mutator of availability counts
type Ledger struct {
	store Store
	log   *logger.Logger
}

func NewLedger(store Store, log *logger.Logger) *Ledger {
	return &Ledger{
		store: store,
		log:   logger.OrDefault(log).WithComponent("inventory"),
	}
}

// Reserve holds quantity tickets of a category and returns the token for the hold
func (l *Ledger) Reserve(ctx context.Context, eventID uuid.UUID, categoryID string, quantity int) (*ReservationToken, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidRequest("quantity must be positive, got %d", quantity)
	}
	if eventID == uuid.Nil || categoryID == "" {
		return nil, apperrors.InvalidRequest("event and category are required")
	}

	token := ReservationToken{
		ID:         uuid.New(),
		EventID:    eventID,
		CategoryID: categoryID,
		Quantity:   quantity,
	}
	if err := l.store.Reserve(ctx, token); err != nil {
		metrics.InventoryOperation("reserve", string(apperrors.KindOf(err)))
		l.log.LogReservationFailed(ctx, eventID.String(), categoryID, quantity, err)
		return nil, err
	}

	metrics.InventoryOperation("reserve", "ok")
	return &token, nil
}

// Finalize permanently consumes a held reservation. Repeating it is a no-op.
func (l *Ledger) Finalize(ctx context.Context, token ReservationToken) error {
	err := l.store.Finalize(ctx, token)
	l.record("finalize", err)
	return err
}

// Release returns a held reservation to availability. Repeating it is a no-op.
func (l *Ledger) Release(ctx context.Context, token ReservationToken) error {
	err := l.store.Release(ctx, token)
	l.record("release", err)
	return err
}

// Provision creates the counter for a category; an existing counter is left untouched
func (l *Ledger) Provision(ctx context.Context, eventID uuid.UUID, categoryID string, capacity int) error {
	if capacity < 0 {
		return apperrors.InvalidRequest("capacity must not be negative")
	}
	created, err := l.store.Provision(ctx, eventID, categoryID, capacity)
	if err != nil {
		return err
	}
	if created {
		l.log.InfoContext(ctx, "Inventory Provisioned",
			"event_id", eventID.String(), "category_id", categoryID, "capacity", capacity)
	}
	return nil
}

func (l *Ledger) Availability(ctx context.Context, eventID uuid.UUID, categoryID string) (*Snapshot, error) {
	return l.store.Snapshot(ctx, eventID, categoryID)
}

func (l *Ledger) record(op string, err error) {
	if err == nil {
		metrics.InventoryOperation(op, "ok")
		return
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		metrics.InventoryOperation(op, string(appErr.Kind))
		return
	}
	metrics.InventoryOperation(op, string(apperrors.KindInternal))
}
