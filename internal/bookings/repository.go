package bookings

import (
	"context"
	"errors"
	"time"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransitionRequest is a conditional status change: it applies only while the
// booking is still in From, and optionally only on one side of expires_at.
type TransitionRequest struct {
	BookingID uuid.UUID
	From      Status
	To        Status
	At        time.Time

	RequireUnexpired bool
	RequireExpired   bool

	PaymentReference string
	VerifiedBy       string
	RejectionReason  string
}

type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// FindByActivePaymentReference finds the booking that still holds reference
	FindByActivePaymentReference(ctx context.Context, reference string) (*Booking, error)
	// Transition reports false when the booking was no longer in req.From
	Transition(ctx context.Context, req TransitionRequest) (bool, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]Booking, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Booking, int64, error)
	// ListUnsettled returns terminal bookings whose holds are not yet settled, oldest first
	ListUnsettled(ctx context.Context, limit int) ([]Booking, error)
	MarkHoldsSettled(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, booking *Booking) error {
	err := r.db.WithContext(ctx).Create(booking).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Internal(err, "booking reference collision")
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("booking %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindByActivePaymentReference(ctx context.Context, reference string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Where("payment_reference = ? AND status NOT IN ?", reference, []Status{StatusRejected, StatusExpired}).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("no booking holds reference %s", reference)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) Transition(ctx context.Context, req TransitionRequest) (bool, error) {
	updates := map[string]interface{}{
		"status":     req.To,
		"updated_at": req.At,
	}
	if req.PaymentReference != "" {
		updates["payment_reference"] = req.PaymentReference
		updates["payment_submitted_at"] = req.At
	}
	if req.VerifiedBy != "" {
		updates["verified_by"] = req.VerifiedBy
		updates["verified_at"] = req.At
	}
	if req.RejectionReason != "" {
		updates["rejection_reason"] = req.RejectionReason
	}

	query := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", req.BookingID, req.From)
	if req.RequireUnexpired {
		query = query.Where("expires_at > ?", req.At)
	}
	if req.RequireExpired {
		query = query.Where("expires_at < ?", req.At)
	}

	result := query.Updates(updates)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return false, apperrors.DuplicateReference("payment reference %s is already in use", req.PaymentReference)
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("status = ? AND expires_at < ?", StatusPendingPayment, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Booking, int64, error) {
	var (
		bookings   []Booking
		totalCount int64
	)

	baseQuery := r.db.WithContext(ctx).Model(&Booking{}).Where("status = ?", status)
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	err := baseQuery.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("payment_submitted_at ASC NULLS LAST, created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&bookings).Error
	return bookings, totalCount, err
}

func (r *repository) ListUnsettled(ctx context.Context, limit int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("holds_settled = ? AND status IN ?", false, []Status{StatusConfirmed, StatusRejected, StatusExpired}).
		Order("updated_at ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) MarkHoldsSettled(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", id).
		Update("holds_settled", true).Error
}
