package inventory

import (
	"context"
	"sync"
	"testing"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/testutil"
	"ticketbooth/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	testutil.RequireIntegration(t)

	db := testutil.StartPostgres(t)
	require.NoError(t, db.AutoMigrate(&Counter{}, &Reservation{}))

	return map[string]Store{
		"redis":    NewRedisStore(testutil.StartRedis(t)),
		"postgres": NewPostgresStore(db),
	}
}

func TestStores_ConcurrentReservesAgainstRealBackends(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ledger := NewLedger(store, logger.Discard())
			eventID := uuid.New()
			require.NoError(t, ledger.Provision(ctx, eventID, "GA", 20))

			var (
				mu     sync.Mutex
				tokens []*ReservationToken
				wg     sync.WaitGroup
			)
			for i := 0; i < 60; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					token, err := ledger.Reserve(ctx, eventID, "GA", 1)
					if err != nil {
						assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
						return
					}
					mu.Lock()
					tokens = append(tokens, token)
					mu.Unlock()
				}()
			}
			wg.Wait()
			require.Len(t, tokens, 20)

			for i, token := range tokens {
				if i%2 == 0 {
					require.NoError(t, ledger.Finalize(ctx, *token))
					require.NoError(t, ledger.Finalize(ctx, *token))
				} else {
					require.NoError(t, ledger.Release(ctx, *token))
					require.NoError(t, ledger.Release(ctx, *token))
				}
			}
			assert.ErrorIs(t, ledger.Release(ctx, *tokens[0]), apperrors.ErrInvalidState)

			snap, err := ledger.Availability(ctx, eventID, "GA")
			require.NoError(t, err)
			assert.Equal(t, 10, snap.Available)
			assert.Equal(t, 0, snap.Reserved)
			assert.Equal(t, 10, snap.Sold)
		})
	}
}
