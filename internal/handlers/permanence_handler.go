package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

// PermanenceHandler serves volunteer shifts
type PermanenceHandler struct {
	permanences *services.PermanenceService
	log         *log.Logger
}

func NewPermanenceHandler(permanences *services.PermanenceService) *PermanenceHandler {
	return &PermanenceHandler{
		permanences: permanences,
		log:         logger.Handler("permanence_handler"),
	}
}

// CreatePermanence handles POST /api/permanences
func (h *PermanenceHandler) CreatePermanence(c *gin.Context) {
	var req services.CreatePermanenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.permanences.Create(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Permanence created", p)
}

// ListPermanences handles GET /api/permanences?from=&to=&status=&mine=
func (h *PermanenceHandler) ListPermanences(c *gin.Context) {
	rng, err := rangeQuery(c)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	mine, err := boolQuery(c, "mine")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	shifts, err := h.permanences.List(c.Request.Context(), auth.Actor(c), services.PermanenceListRequest{
		Range:  rng,
		Status: permanence.Status(c.Query("status")),
		Mine:   mine,
	})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", shifts)
}

// GetPermanence handles GET /api/permanences/:id
func (h *PermanenceHandler) GetPermanence(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	p, err := h.permanences.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", p)
}

// UpdatePermanence handles PATCH /api/permanences/:id
func (h *PermanenceHandler) UpdatePermanence(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.UpdatePermanenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.permanences.Update(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Permanence updated", p)
}

// SetStatus handles PUT /api/permanences/:id/status
func (h *PermanenceHandler) SetStatus(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.SetPermanenceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.permanences.SetStatus(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Permanence status updated", p)
}

// DeletePermanence handles DELETE /api/permanences/:id
func (h *PermanenceHandler) DeletePermanence(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.permanences.Delete(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Register handles POST /api/permanences/:id/volunteers?profile_id=
// Without profile_id the caller registers themself.
func (h *PermanenceHandler) Register(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}
	profileID, err := optionalUUID(c, "profile_id")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	p, err := h.permanences.Register(c.Request.Context(), auth.Actor(c), id, profileID)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Registered", p)
}

// Unregister handles DELETE /api/permanences/:id/volunteers?profile_id=
func (h *PermanenceHandler) Unregister(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}
	profileID, err := optionalUUID(c, "profile_id")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	p, err := h.permanences.Unregister(c.Request.Context(), auth.Actor(c), id, profileID)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Unregistered", p)
}

// GetVolunteers handles GET /api/permanences/:id/volunteers
func (h *PermanenceHandler) GetVolunteers(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	volunteers, err := h.permanences.Participants(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", volunteers)
}
