package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore serializes every counter update behind one mutex.
// It backs tests and single-process deployments.
type MemoryStore struct {
	mu           sync.Mutex
	counters     map[string]*Counter
	reservations map[uuid.UUID]*Reservation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters:     make(map[string]*Counter),
		reservations: make(map[uuid.UUID]*Reservation),
	}
}

func (s *MemoryStore) Provision(_ context.Context, eventID uuid.UUID, categoryID string, capacity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKeyString(eventID, categoryID)
	if _, ok := s.counters[key]; ok {
		return false, nil
	}
	s.counters[key] = &Counter{
		EventID:       eventID,
		CategoryID:    categoryID,
		TotalCapacity: capacity,
		Available:     capacity,
		UpdatedAt:     time.Now().UTC(),
	}
	return true, nil
}

func (s *MemoryStore) Reserve(_ context.Context, token ReservationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[counterKeyString(token.EventID, token.CategoryID)]
	if !ok {
		return counterNotFound(token.EventID, token.CategoryID)
	}
	if c.Available < token.Quantity {
		return insufficient(token.CategoryID, c.Available)
	}

	now := time.Now().UTC()
	c.Available -= token.Quantity
	c.Reserved += token.Quantity
	c.UpdatedAt = now
	s.reservations[token.ID] = &Reservation{
		ID:         token.ID,
		EventID:    token.EventID,
		CategoryID: token.CategoryID,
		Quantity:   token.Quantity,
		State:      StateHeld,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return nil
}

func (s *MemoryStore) Finalize(_ context.Context, token ReservationToken) error {
	return s.settle(token.ID, StateFinalized)
}

func (s *MemoryStore) Release(_ context.Context, token ReservationToken) error {
	return s.settle(token.ID, StateReleased)
}

func (s *MemoryStore) settle(tokenID uuid.UUID, target ReservationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[tokenID]
	if !ok {
		return reservationNotFound(tokenID)
	}
	switch r.State {
	case target:
		return nil
	case StateHeld:
	default:
		return conflictingState(tokenID, r.State, opName(target))
	}

	c := s.counters[counterKeyString(r.EventID, r.CategoryID)]
	c.Reserved -= r.Quantity
	if target == StateFinalized {
		c.Sold += r.Quantity
	} else {
		c.Available += r.Quantity
	}
	now := time.Now().UTC()
	c.UpdatedAt = now
	r.State = target
	r.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context, eventID uuid.UUID, categoryID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[counterKeyString(eventID, categoryID)]
	if !ok {
		return nil, counterNotFound(eventID, categoryID)
	}
	return c.Snapshot(), nil
}

func opName(target ReservationState) string {
	if target == StateFinalized {
		return "finalize"
	}
	return "release"
}
