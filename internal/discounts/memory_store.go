package discounts

import (
	"context"
	"sync"
	"time"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
)

// MemoryStore guards all codes and uses with one mutex
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]*DiscountCode
	uses  map[uuid.UUID]*DiscountUse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes: make(map[string]*DiscountCode),
		uses:  make(map[uuid.UUID]*DiscountUse),
	}
}

func (s *MemoryStore) Create(_ context.Context, code *DiscountCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code.Code]; ok {
		return apperrors.InvalidRequest("code %s already exists", code.Code)
	}
	clone := *code
	clone.ApplicableEvents = append([]ApplicableEvent(nil), code.ApplicableEvents...)
	s.codes[code.Code] = &clone
	return nil
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (*DiscountCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.codes[code]
	if !ok {
		return nil, apperrors.NotFound("discount code %s not found", code)
	}
	clone := *dc
	clone.ApplicableEvents = append([]ApplicableEvent(nil), dc.ApplicableEvents...)
	return &clone, nil
}

func (s *MemoryStore) ReserveUse(_ context.Context, codeID uuid.UUID, use *DiscountUse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dc := s.byID(codeID)
	if dc == nil {
		return apperrors.NotFound("discount code %s not found", codeID)
	}
	if !dc.Unlimited() && dc.CurrentUses >= dc.MaxUses {
		return apperrors.Discount(apperrors.ReasonUsageLimitReached, "code %s has reached its usage limit", dc.Code)
	}
	dc.CurrentUses++
	clone := *use
	s.uses[use.ID] = &clone
	return nil
}

func (s *MemoryStore) ReleaseUse(_ context.Context, useID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	use, ok := s.uses[useID]
	if !ok {
		return apperrors.NotFound("discount use %s not found", useID)
	}
	if use.State == UseReleased {
		return nil
	}
	now := time.Now().UTC()
	use.State = UseReleased
	use.ReleasedAt = &now
	if dc := s.byID(use.DiscountCodeID); dc != nil && dc.CurrentUses > 0 {
		dc.CurrentUses--
	}
	return nil
}

func (s *MemoryStore) byID(id uuid.UUID) *DiscountCode {
	for _, dc := range s.codes {
		if dc.ID == id {
			return dc
		}
	}
	return nil
}
