package verification

import (
	"context"
	"errors"
	"strings"

	"ticketbooth/internal/bookings"
	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/pkg/logger"

	"github.com/google/uuid"
)

const maxReasonLength = 500

// Lifecycle is the part of the booking state machine verification drives
type Lifecycle interface {
	Verify(ctx context.Context, bookingID uuid.UUID, decision bookings.Decision, input bookings.VerifyInput) (*bookings.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error)
	ListAwaitingVerification(ctx context.Context, limit, offset int) ([]bookings.Booking, int64, error)
}

// Service is the admin side of payment verification
type Service struct {
	lifecycle Lifecycle
	log       *logger.Logger
}

func NewService(lifecycle Lifecycle, log *logger.Logger) *Service {
	return &Service{
		lifecycle: lifecycle,
		log:       logger.OrDefault(log).WithComponent("verification"),
	}
}

// Accept confirms a booking. Accepting an already confirmed booking returns it unchanged.
func (s *Service) Accept(ctx context.Context, bookingID uuid.UUID, adminID string) (*bookings.Booking, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, apperrors.InvalidRequest("admin identity is required")
	}

	current, err := s.lifecycle.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == bookings.StatusConfirmed {
		return current, nil
	}

	booking, err := s.lifecycle.Verify(ctx, bookingID, bookings.DecisionAccept, bookings.VerifyInput{AdminID: adminID})
	if errors.Is(err, apperrors.ErrInvalidState) {
		// another admin may have accepted it in between
		current, getErr := s.lifecycle.GetBooking(ctx, bookingID)
		if getErr == nil && current.Status == bookings.StatusConfirmed {
			return current, nil
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Payment Accepted", "booking_id", bookingID.String(), "admin_id", adminID)
	return booking, nil
}

// Reject refuses a booking's payment and frees its holds; a reason is mandatory
func (s *Service) Reject(ctx context.Context, bookingID uuid.UUID, adminID, reason string) (*bookings.Booking, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, apperrors.InvalidRequest("admin identity is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.InvalidRequest("a reason is required to reject a payment")
	}
	if len(reason) > maxReasonLength {
		return nil, apperrors.InvalidRequest("reason must be at most %d characters", maxReasonLength)
	}

	booking, err := s.lifecycle.Verify(ctx, bookingID, bookings.DecisionReject, bookings.VerifyInput{
		AdminID: adminID,
		Reason:  reason,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Payment Rejected", "booking_id", bookingID.String(), "admin_id", adminID, "reason", reason)
	return booking, nil
}

// Decide dispatches a decision coming from the API
func (s *Service) Decide(ctx context.Context, bookingID uuid.UUID, decision bookings.Decision, adminID, reason string) (*bookings.Booking, error) {
	switch decision {
	case bookings.DecisionAccept:
		return s.Accept(ctx, bookingID, adminID)
	case bookings.DecisionReject:
		return s.Reject(ctx, bookingID, adminID, reason)
	default:
		return nil, apperrors.InvalidRequest("decision must be accept or reject")
	}
}

func (s *Service) Pending(ctx context.Context, limit, offset int) ([]bookings.Booking, int64, error) {
	return s.lifecycle.ListAwaitingVerification(ctx, limit, offset)
}
