package events

import (
	"context"
	"sort"
	"sync"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
)

// MemoryRepository keeps events in process. It backs tests and single-node demos.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]Event
}

func NewMemoryRepository(events ...Event) *MemoryRepository {
	r := &MemoryRepository{events: make(map[uuid.UUID]Event)}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *MemoryRepository) Create(_ context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	for i := range event.Categories {
		event.Categories[i].EventID = event.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = cloneEvent(*event)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, apperrors.NotFound("event %s not found", id)
	}
	clone := cloneEvent(e)
	return &clone, nil
}

func (r *MemoryRepository) GetByStatus(_ context.Context, status EventStatus) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.events {
		if e.Status == status {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, status EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return apperrors.NotFound("event %s not found", id)
	}
	e.Status = status
	r.events[id] = e
	return nil
}

func cloneEvent(e Event) Event {
	e.Categories = append([]TicketCategory(nil), e.Categories...)
	return e
}
