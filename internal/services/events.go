package services

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

// EventService handles the association agenda
type EventService struct {
	events event.Repository
	now    Clock
	log    *log.Logger
}

// NewEventService creates a new event service
func NewEventService(events event.Repository) *EventService {
	return &EventService{
		events: events,
		now:    time.Now,
		log:    logger.Service("events"),
	}
}

// CreateEventRequest represents a request to create an event
type CreateEventRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Category    event.Category `json:"category"`
	StartAt     time.Time      `json:"start_at" binding:"required"`
	EndAt       time.Time      `json:"end_at" binding:"required"`
	AllDay      bool           `json:"all_day"`
}

// UpdateEventRequest holds the event fields to change
type UpdateEventRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Location    *string         `json:"location"`
	Category    *event.Category `json:"category"`
	StartAt     *time.Time      `json:"start_at"`
	EndAt       *time.Time      `json:"end_at"`
	AllDay      *bool           `json:"all_day"`
}

// RSVPRequest represents an answer to an event
type RSVPRequest struct {
	Response event.Response `json:"response" binding:"required"`
}

// Create stores a new event with the creator attending
func (s *EventService) Create(ctx context.Context, actor common.Actor, req CreateEventRequest) (*event.Event, error) {
	s.log.Debug("Creating event", "title", req.Title, "by", actor.ID)

	if err := validation.ValidateMaxLength(req.Title, 200, "title"); err != nil {
		return nil, err
	}
	if req.Category == "" {
		req.Category = event.CategoryOther
	}
	if !req.Category.Valid() {
		return nil, event.ErrInvalidCategory
	}

	e := event.NewEvent(req.Title, req.Description, req.Category, actor.ID, req.StartAt, req.EndAt)
	e.Location = strings.TrimSpace(req.Location)
	e.AllDay = req.AllDay
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, e); err != nil {
		s.log.Error("Failed to create event", "error", err)
		return nil, err
	}

	s.log.Info("Event created", "event_id", e.ID)
	return e, nil
}

// Get returns an event with its RSVPs
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns the events overlapping the range
func (s *EventService) List(ctx context.Context, filter event.Filter) ([]*event.Event, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, event.ErrInvalidCategory
	}
	if !filter.Range.From.IsZero() && !filter.Range.To.IsZero() && filter.Range.To.Before(filter.Range.From) {
		return nil, common.NewValidationError("to", "must be after from")
	}
	return s.events.List(ctx, filter)
}

// Update changes a scheduled event. Creator or staff only.
func (s *EventService) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateEventRequest) (*event.Event, error) {
	e, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if e.Status == event.StatusCanceled {
		return nil, event.ErrCanceled
	}

	if req.Title != nil {
		if err := validation.ValidateMaxLength(*req.Title, 200, "title"); err != nil {
			return nil, err
		}
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Location != nil {
		e.Location = strings.TrimSpace(*req.Location)
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, event.ErrInvalidCategory
		}
		e.Category = *req.Category
	}
	if req.StartAt != nil {
		e.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		e.EndAt = *req.EndAt
	}
	if req.AllDay != nil {
		e.AllDay = *req.AllDay
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("Event updated", "event_id", e.ID)
	return e, nil
}

// Cancel marks the event as canceled. Creator or staff only.
func (s *EventService) Cancel(ctx context.Context, actor common.Actor, id uuid.UUID) (*event.Event, error) {
	e, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if e.Status == event.StatusCanceled {
		return nil, event.ErrCanceled
	}

	e.Status = event.StatusCanceled
	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("Event canceled", "event_id", e.ID, "by", actor.ID)
	return e, nil
}

// Delete removes the event and its RSVPs. Creator or staff only.
func (s *EventService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Event deleted", "event_id", id, "by", actor.ID)
	return nil
}

// RSVP records the actor's answer to a scheduled event
func (s *EventService) RSVP(ctx context.Context, actor common.Actor, id uuid.UUID, req RSVPRequest) (*event.Participant, error) {
	if !req.Response.Valid() {
		return nil, event.ErrInvalidRSVP
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == event.StatusCanceled {
		return nil, event.ErrCanceled
	}

	p := &event.Participant{
		EventID:     id,
		ProfileID:   actor.ID,
		Response:    req.Response,
		RespondedAt: s.now().UTC(),
	}
	if err := s.events.SetResponse(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("RSVP recorded", "event_id", id, "profile_id", actor.ID, "response", p.Response)
	return p, nil
}

// RemoveRSVP withdraws the actor's answer
func (s *EventService) RemoveRSVP(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	return s.events.RemoveResponse(ctx, id, actor.ID)
}

// Participants lists the answers of an event
func (s *EventService) Participants(ctx context.Context, id uuid.UUID) ([]*event.Participant, error) {
	if _, err := s.events.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.events.ListParticipants(ctx, id)
}

func (s *EventService) editable(ctx context.Context, actor common.Actor, id uuid.UUID) (*event.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.CanEdit(actor) {
		return nil, event.ErrNotAllowedToEdit
	}
	return e, nil
}
