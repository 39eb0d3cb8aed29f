package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, capacity int) (*Ledger, uuid.UUID) {
	t.Helper()
	ledger := NewLedger(NewMemoryStore(), logger.Discard())
	eventID := uuid.New()
	require.NoError(t, ledger.Provision(context.Background(), eventID, "GA", capacity))
	return ledger, eventID
}

func assertConserved(t *testing.T, snap *Snapshot) {
	t.Helper()
	assert.GreaterOrEqual(t, snap.Available, 0)
	assert.Equal(t, snap.TotalCapacity, snap.Available+snap.Reserved+snap.Sold)
}

func TestLedger_ReserveFinalizeRelease(t *testing.T) {
	ctx := context.Background()
	ledger, eventID := newTestLedger(t, 10)

	held, err := ledger.Reserve(ctx, eventID, "GA", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, held.Quantity)

	sold, err := ledger.Reserve(ctx, eventID, "GA", 2)
	require.NoError(t, err)

	snap, err := ledger.Availability(ctx, eventID, "GA")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Available)
	assert.Equal(t, 5, snap.Reserved)
	assertConserved(t, snap)

	require.NoError(t, ledger.Finalize(ctx, *sold))
	require.NoError(t, ledger.Release(ctx, *held))

	snap, err = ledger.Availability(ctx, eventID, "GA")
	require.NoError(t, err)
	assert.Equal(t, 8, snap.Available)
	assert.Equal(t, 0, snap.Reserved)
	assert.Equal(t, 2, snap.Sold)
	assertConserved(t, snap)
}

func TestLedger_SettleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger, eventID := newTestLedger(t, 4)

	a, err := ledger.Reserve(ctx, eventID, "GA", 2)
	require.NoError(t, err)
	b, err := ledger.Reserve(ctx, eventID, "GA", 2)
	require.NoError(t, err)

	require.NoError(t, ledger.Finalize(ctx, *a))
	require.NoError(t, ledger.Finalize(ctx, *a))
	require.NoError(t, ledger.Release(ctx, *b))
	require.NoError(t, ledger.Release(ctx, *b))

	snap, err := ledger.Availability(ctx, eventID, "GA")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Available)
	assert.Equal(t, 2, snap.Sold)
	assertConserved(t, snap)

	err = ledger.Release(ctx, *a)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	err = ledger.Finalize(ctx, *b)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestLedger_ReserveErrors(t *testing.T) {
	ctx := context.Background()
	ledger, eventID := newTestLedger(t, 2)

	tests := []struct {
		name       string
		eventID    uuid.UUID
		categoryID string
		quantity   int
		wantErr    error
		wantMsg    string
	}{
		{"zero quantity", eventID, "GA", 0, apperrors.ErrInvalidRequest, ""},
		{"negative quantity", eventID, "GA", -1, apperrors.ErrInvalidRequest, ""},
		{"unknown category", eventID, "VIP", 1, apperrors.ErrNotFound, ""},
		{"unknown event", uuid.New(), "GA", 1, apperrors.ErrNotFound, ""},
		{"more than available", eventID, "GA", 3, apperrors.ErrInsufficientInventory, "only 2 tickets left in GA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ledger.Reserve(ctx, tt.eventID, tt.categoryID, tt.quantity)
			assert.Nil(t, token)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}

	snap, err := ledger.Availability(ctx, eventID, "GA")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Available)
}

func TestLedger_SoldOutMessage(t *testing.T) {
	ctx := context.Background()
	ledger, eventID := newTestLedger(t, 1)

	_, err := ledger.Reserve(ctx, eventID, "GA", 1)
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, eventID, "GA", 1)
	require.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
	assert.Contains(t, err.Error(), "GA is sold out")
}

func TestLedger_SettleUnknownToken(t *testing.T) {
	ctx := context.Background()
	ledger, eventID := newTestLedger(t, 1)

	ghost := ReservationToken{ID: uuid.New(), EventID: eventID, CategoryID: "GA", Quantity: 1}
	assert.ErrorIs(t, ledger.Finalize(ctx, ghost), apperrors.ErrNotFound)
	assert.ErrorIs(t, ledger.Release(ctx, ghost), apperrors.ErrNotFound)
}

func TestLedger_ProvisionKeepsExistingCounter(t *testing.T) {
	ctx := context.Background()
	ledger, eventID := newTestLedger(t, 5)

	_, err := ledger.Reserve(ctx, eventID, "GA", 2)
	require.NoError(t, err)

	require.NoError(t, ledger.Provision(ctx, eventID, "GA", 100))

	snap, err := ledger.Availability(ctx, eventID, "GA")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.TotalCapacity)
	assert.Equal(t, 3, snap.Available)

	assert.ErrorIs(t, ledger.Provision(ctx, eventID, "VIP", -1), apperrors.ErrInvalidRequest)
}

// Concurrent reserves against one counter must never oversell
func TestLedger_ConcurrentReservesNeverOversell(t *testing.T) {
	ctx := context.Background()
	const capacity = 50
	ledger, eventID := newTestLedger(t, capacity)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		sold      atomic.Int64
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := ledger.Reserve(ctx, eventID, "GA", 1+i%3)
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
				return
			}
			succeeded.Add(int64(token.Quantity))
			if i%2 == 0 {
				assert.NoError(t, ledger.Finalize(ctx, *token))
				sold.Add(int64(token.Quantity))
			}
		}(i)
	}
	wg.Wait()

	snap, err := ledger.Availability(ctx, eventID, "GA")
	require.NoError(t, err)
	assertConserved(t, snap)
	assert.LessOrEqual(t, succeeded.Load(), int64(capacity))
	assert.Equal(t, int(sold.Load()), snap.Sold)
	assert.Equal(t, int(succeeded.Load()-sold.Load()), snap.Reserved)
}

// Concurrent finalize and release on one token: exactly one of them wins
func TestLedger_ConcurrentSettleOnSameToken(t *testing.T) {
	ctx := context.Background()
	ledger, eventID := newTestLedger(t, 3)

	token, err := ledger.Reserve(ctx, eventID, "GA", 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = ledger.Finalize(ctx, *token)
	}()
	go func() {
		defer wg.Done()
		errs[1] = ledger.Release(ctx, *token)
	}()
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrInvalidState)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	snap, err := ledger.Availability(ctx, eventID, "GA")
	require.NoError(t, err)
	assertConserved(t, snap)
	assert.Equal(t, 0, snap.Reserved)
}
