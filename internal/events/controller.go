package events

import (
	"context"
	"net/http"

	"ticketbooth/internal/inventory"
	"ticketbooth/internal/shared/apperrors"
	"ticketbooth/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// AvailabilityReader reports live counts for a category
type AvailabilityReader interface {
	Availability(ctx context.Context, eventID uuid.UUID, categoryID string) (*inventory.Snapshot, error)
}

type Controller struct {
	service      Service
	availability AvailabilityReader
}

func NewController(service Service, availability AvailabilityReader) *Controller {
	return &Controller{service: service, availability: availability}
}

// GetAllEvents handles GET /api/v1/events
func (ctrl *Controller) GetAllEvents(c *gin.Context) {
	list, err := ctrl.service.ListPublished(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}

	out := make([]EventResponse, 0, len(list))
	for i := range list {
		out = append(out, ctrl.toResponse(c.Request.Context(), &list[i]))
	}
	response.RespondSuccess(c, http.StatusOK, "Events retrieved successfully", out)
}

// GetEvent handles GET /api/v1/events/:id
func (ctrl *Controller) GetEvent(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	event, err := ctrl.service.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if event.Status == StatusDraft {
		response.RespondError(c, apperrors.NotFound("event %s not found", eventID))
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Event retrieved successfully", ctrl.toResponse(c.Request.Context(), event))
}

// CreateEvent handles POST /api/v1/admin/events
func (ctrl *Controller) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	event := &Event{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt.UTC(),
		Status:      StatusDraft,
		Categories: lo.Map(req.Categories, func(tc TicketCategoryRequest, _ int) TicketCategory {
			return TicketCategory{
				ID:            tc.ID,
				Name:          tc.Name,
				UnitPrice:     tc.UnitPrice,
				TotalCapacity: tc.TotalCapacity,
			}
		}),
	}
	if req.Publish {
		event.Status = StatusPublished
	}

	if err := ctrl.service.CreateEvent(c.Request.Context(), event); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusCreated, "Event created successfully", ctrl.toResponse(c.Request.Context(), event))
}

// PublishEvent handles POST /api/v1/admin/events/:id/publish
func (ctrl *Controller) PublishEvent(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	if err := ctrl.service.PublishEvent(c.Request.Context(), eventID); err != nil {
		response.RespondError(c, err)
		return
	}

	event, err := ctrl.service.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondSuccess(c, http.StatusOK, "Event published successfully", ctrl.toResponse(c.Request.Context(), event))
}

func (ctrl *Controller) toResponse(ctx context.Context, event *Event) EventResponse {
	return EventResponse{
		ID:       event.ID.String(),
		Name:     event.Name,
		Venue:    event.Venue,
		StartsAt: event.StartsAt,
		Status:   event.Status,
		Categories: lo.Map(event.Categories, func(tc TicketCategory, _ int) CategoryResponse {
			cr := CategoryResponse{
				ID:            tc.ID,
				Name:          tc.Name,
				UnitPrice:     tc.UnitPrice,
				TotalCapacity: tc.TotalCapacity,
			}
			// counters only exist once the event is published
			if ctrl.availability != nil && event.Status == StatusPublished {
				if snap, err := ctrl.availability.Availability(ctx, event.ID, tc.ID); err == nil {
					cr.Available = snap.Available
				}
			}
			return cr
		}),
	}
}

func parseEventID(c *gin.Context) (uuid.UUID, bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apperrors.InvalidRequest("invalid event id %q", c.Param("id")))
		return uuid.Nil, false
	}
	return eventID, true
}
