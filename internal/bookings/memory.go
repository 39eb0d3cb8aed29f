package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
)

// MemoryRepository applies every transition under one mutex, mirroring the
// conditional updates and the active payment reference index of the SQL schema.
type MemoryRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bookings: make(map[uuid.UUID]*Booking)}
}

func (r *MemoryRepository) Create(_ context.Context, booking *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[booking.ID]; ok {
		return apperrors.Internal(nil, "booking %s already exists", booking.ID)
	}
	r.bookings[booking.ID] = booking.clone()
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking %s not found", id)
	}
	return b.clone(), nil
}

func (r *MemoryRepository) FindByActivePaymentReference(_ context.Context, reference string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.holderOf(reference); b != nil {
		return b.clone(), nil
	}
	return nil, apperrors.NotFound("no booking holds reference %s", reference)
}

func (r *MemoryRepository) Transition(_ context.Context, req TransitionRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[req.BookingID]
	if !ok || b.Status != req.From {
		return false, nil
	}
	if req.RequireUnexpired && !b.ExpiresAt.After(req.At) {
		return false, nil
	}
	if req.RequireExpired && !b.ExpiresAt.Before(req.At) {
		return false, nil
	}
	if req.PaymentReference != "" {
		if holder := r.holderOf(req.PaymentReference); holder != nil && holder.ID != b.ID {
			return false, apperrors.DuplicateReference("payment reference %s is already in use", req.PaymentReference)
		}
	}

	at := req.At
	b.Status = req.To
	b.UpdatedAt = at
	if req.PaymentReference != "" {
		ref := req.PaymentReference
		b.PaymentReference = &ref
		b.PaymentSubmittedAt = &at
	}
	if req.VerifiedBy != "" {
		by := req.VerifiedBy
		b.VerifiedBy = &by
		b.VerifiedAt = &at
	}
	if req.RejectionReason != "" {
		reason := req.RejectionReason
		b.RejectionReason = &reason
	}
	return true, nil
}

func (r *MemoryRepository) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.Status == StatusPendingPayment && b.ExpiresAt.Before(now) {
			out = append(out, *b.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) ListByStatus(_ context.Context, status Status, limit, offset int) ([]Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.Status == status {
			out = append(out, *b.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	total := int64(len(out))
	if offset >= len(out) {
		return []Booking{}, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *MemoryRepository) ListUnsettled(_ context.Context, limit int) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.Status.IsTerminal() && !b.HoldsSettled {
			out = append(out, *b.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) MarkHoldsSettled(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return apperrors.NotFound("booking %s not found", id)
	}
	b.HoldsSettled = true
	return nil
}

func (r *MemoryRepository) holderOf(reference string) *Booking {
	for _, b := range r.bookings {
		if b.PaymentReference != nil && *b.PaymentReference == reference && b.Status.HoldsPaymentReference() {
			return b
		}
	}
	return nil
}
