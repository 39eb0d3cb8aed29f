package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the indexes AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	// A payment reference may be held by at most one booking that is still in play
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_payment_reference
		ON bookings (payment_reference)
		WHERE payment_reference IS NOT NULL AND status NOT IN ('REJECTED', 'EXPIRED');
	`).Error
	if err != nil {
		return err
	}

	// Expiry sweep scans pending bookings by deadline
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_pending_expiry
		ON bookings (expires_at)
		WHERE status = 'PENDING_PAYMENT';
	`).Error
	if err != nil {
		return err
	}

	// Reconciliation scans terminal bookings whose holds were never settled
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_unsettled_holds
		ON bookings (updated_at)
		WHERE holds_settled = false AND status IN ('CONFIRMED', 'REJECTED', 'EXPIRED');
	`).Error
	if err != nil {
		return err
	}

	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_inventory_reservations_held
		ON inventory_reservations (event_id, category_id)
		WHERE state = 'HELD';
	`).Error
	if err != nil {
		return err
	}

	return nil
}
