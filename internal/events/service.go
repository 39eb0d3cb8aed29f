package events

import (
	"context"
	"fmt"
	"time"

	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/constants"
	"ticketbooth/pkg/cache"
	"ticketbooth/pkg/logger"

	"github.com/google/uuid"
)

// Catalog is the read-only event lookup the booking core consumes
type Catalog interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
}

// Provisioner creates inventory counters for a category when an event is published
type Provisioner interface {
	Provision(ctx context.Context, eventID uuid.UUID, categoryID string, capacity int) error
}

type Service interface {
	Catalog
	CreateEvent(ctx context.Context, event *Event) error
	PublishEvent(ctx context.Context, id uuid.UUID) error
	ListPublished(ctx context.Context) ([]Event, error)
}

type service struct {
	repo         Repository
	provisioner  Provisioner
	cacheService cache.Service
	cacheTTL     time.Duration
	log          *logger.Logger
}

// NewService builds the catalog service. cacheService may be nil to read straight from the repository.
func NewService(repo Repository, provisioner Provisioner, cacheService cache.Service, log *logger.Logger) Service {
	return &service{
		repo:         repo,
		provisioner:  provisioner,
		cacheService: cacheService,
		cacheTTL:     constants.TTL_EVENT_DETAIL,
		log:          logger.OrDefault(log).WithComponent("events"),
	}
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	if s.cacheService == nil {
		return s.repo.GetByID(ctx, id)
	}

	var event Event
	err := s.cacheService.GetOrSet(ctx, constants.BuildEventDetailKey(id.String()), s.cacheTTL, func() (interface{}, error) {
		return s.repo.GetByID(ctx, id)
	}, &event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *service) CreateEvent(ctx context.Context, event *Event) error {
	if event.Name == "" || event.Venue == "" {
		return apperrors.InvalidRequest("event name and venue are required")
	}
	if len(event.Categories) == 0 {
		return apperrors.InvalidRequest("event needs at least one ticket category")
	}
	seen := make(map[string]bool, len(event.Categories))
	for _, c := range event.Categories {
		if c.ID == "" || c.TotalCapacity <= 0 || c.UnitPrice < 0 {
			return apperrors.InvalidRequest("invalid ticket category %q", c.ID)
		}
		if seen[c.ID] {
			return apperrors.InvalidRequest("duplicate ticket category %q", c.ID)
		}
		seen[c.ID] = true
	}
	if event.Status == "" {
		event.Status = StatusDraft
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	if event.Status == StatusPublished {
		return s.provision(ctx, event)
	}
	return nil
}

// PublishEvent makes an event bookable and provisions its inventory counters
func (s *service) PublishEvent(ctx context.Context, id uuid.UUID) error {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.Status == StatusCancelled || event.Status == StatusCompleted {
		return apperrors.InvalidState("event %s is %s", id, event.Status)
	}

	if err := s.provision(ctx, event); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusPublished); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.InfoContext(ctx, "Event Published", "event_id", id.String())
	return nil
}

func (s *service) ListPublished(ctx context.Context) ([]Event, error) {
	return s.repo.GetByStatus(ctx, StatusPublished)
}

func (s *service) provision(ctx context.Context, event *Event) error {
	if s.provisioner == nil {
		return nil
	}
	for _, c := range event.Categories {
		if err := s.provisioner.Provision(ctx, event.ID, c.ID, c.TotalCapacity); err != nil {
			return fmt.Errorf("failed to provision inventory for %s/%s: %w", event.ID, c.ID, err)
		}
	}
	return nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildEventDetailKey(id.String())); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate event cache", "event_id", id.String(), "error", err.Error())
	}
}
