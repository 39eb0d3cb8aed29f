package inventory

import (
	"context"
	"errors"
	"time"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore keeps counters in inventory_counters and relies on a
// conditional UPDATE so that available never drops below zero.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Provision(ctx context.Context, eventID uuid.UUID, categoryID string, capacity int) (bool, error) {
	counter := Counter{
		EventID:       eventID,
		CategoryID:    categoryID,
		TotalCapacity: capacity,
		Available:     capacity,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&counter)
	if result.Error != nil {
		return false, apperrors.Internal(result.Error, "failed to provision inventory")
	}
	return result.RowsAffected == 1, nil
}

func (s *PostgresStore) Reserve(ctx context.Context, token ReservationToken) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Counter{}).
			Where("event_id = ? AND category_id = ? AND available >= ?", token.EventID, token.CategoryID, token.Quantity).
			Updates(map[string]interface{}{
				"available":  gorm.Expr("available - ?", token.Quantity),
				"reserved":   gorm.Expr("reserved + ?", token.Quantity),
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return apperrors.Internal(result.Error, "failed to reserve inventory")
		}

		if result.RowsAffected == 0 {
			var counter Counter
			err := tx.Where("event_id = ? AND category_id = ?", token.EventID, token.CategoryID).First(&counter).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return counterNotFound(token.EventID, token.CategoryID)
			}
			if err != nil {
				return apperrors.Internal(err, "failed to read inventory counter")
			}
			return insufficient(token.CategoryID, counter.Available)
		}

		reservation := Reservation{
			ID:         token.ID,
			EventID:    token.EventID,
			CategoryID: token.CategoryID,
			Quantity:   token.Quantity,
			State:      StateHeld,
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return apperrors.Internal(err, "failed to record reservation")
		}
		return nil
	})
}

func (s *PostgresStore) Finalize(ctx context.Context, token ReservationToken) error {
	return s.settle(ctx, token.ID, StateFinalized)
}

func (s *PostgresStore) Release(ctx context.Context, token ReservationToken) error {
	return s.settle(ctx, token.ID, StateReleased)
}

func (s *PostgresStore) settle(ctx context.Context, tokenID uuid.UUID, target ReservationState) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the reservation row so concurrent settles serialize
		var reservation Reservation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", tokenID).
			First(&reservation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reservationNotFound(tokenID)
		}
		if err != nil {
			return apperrors.Internal(err, "failed to lock reservation")
		}

		switch reservation.State {
		case target:
			return nil
		case StateHeld:
		default:
			return conflictingState(tokenID, reservation.State, opName(target))
		}

		updates := map[string]interface{}{
			"reserved":   gorm.Expr("reserved - ?", reservation.Quantity),
			"updated_at": time.Now().UTC(),
		}
		if target == StateFinalized {
			updates["sold"] = gorm.Expr("sold + ?", reservation.Quantity)
		} else {
			updates["available"] = gorm.Expr("available + ?", reservation.Quantity)
		}

		err = tx.Model(&Counter{}).
			Where("event_id = ? AND category_id = ?", reservation.EventID, reservation.CategoryID).
			Updates(updates).Error
		if err != nil {
			return apperrors.Internal(err, "failed to %s reservation", opName(target))
		}

		return tx.Model(&Reservation{}).
			Where("id = ?", tokenID).
			Updates(map[string]interface{}{
				"state":      target,
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (s *PostgresStore) Snapshot(ctx context.Context, eventID uuid.UUID, categoryID string) (*Snapshot, error) {
	var counter Counter
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND category_id = ?", eventID, categoryID).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, counterNotFound(eventID, categoryID)
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to read inventory counter")
	}
	return counter.Snapshot(), nil
}
