package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

type EventHandler struct {
	events *services.EventService
	log    *log.Logger
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{
		events: events,
		log:    logger.Handler("event_handler"),
	}
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req services.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	e, err := h.events.Create(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Event created", e)
}

// ListEvents handles GET /api/events?from=&to=&category=&include_canceled=
func (h *EventHandler) ListEvents(c *gin.Context) {
	rng, err := rangeQuery(c)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	includeCanceled, err := boolQuery(c, "include_canceled")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	events, err := h.events.List(c.Request.Context(), event.Filter{
		Range:           rng,
		Category:        event.Category(c.Query("category")),
		IncludeCanceled: includeCanceled,
	})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", events)
}

// GetEvent handles GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	e, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", e)
}

// UpdateEvent handles PATCH /api/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	e, err := h.events.Update(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Event updated", e)
}

// CancelEvent handles POST /api/events/:id/cancel
func (h *EventHandler) CancelEvent(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	e, err := h.events.Cancel(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Event canceled", e)
}

// DeleteEvent handles DELETE /api/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.events.Delete(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RSVP handles PUT /api/events/:id/rsvp
func (h *EventHandler) RSVP(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.events.RSVP(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Response recorded", p)
}

// RemoveRSVP handles DELETE /api/events/:id/rsvp
func (h *EventHandler) RemoveRSVP(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.events.RemoveRSVP(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetParticipants handles GET /api/events/:id/participants
func (h *EventHandler) GetParticipants(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	participants, err := h.events.Participants(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", participants)
}
