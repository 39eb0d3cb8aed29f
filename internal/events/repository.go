package events

import (
	"context"
	"errors"
	"fmt"

	"ticketbooth/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetByStatus(ctx context.Context, status EventStatus) ([]Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status EventStatus) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	for i := range event.Categories {
		event.Categories[i].EventID = event.ID
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event %s not found", id)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *repository) GetByStatus(ctx context.Context, status EventStatus) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("status = ?", status).
		Order("starts_at ASC").
		Find(&events).Error
	return events, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status EventStatus) error {
	res := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update event status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("event %s not found", id)
	}
	return nil
}
