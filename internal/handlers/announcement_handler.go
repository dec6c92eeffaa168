package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

type AnnouncementHandler struct {
	announcements *services.AnnouncementService
	log           *log.Logger
}

func NewAnnouncementHandler(announcements *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{
		announcements: announcements,
		log:           logger.Handler("announcement_handler"),
	}
}

// CreateAnnouncement handles POST /api/announcements
func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	var req services.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	a, err := h.announcements.Create(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Announcement published", a)
}

// ListAnnouncements handles GET /api/announcements?category=&include_expired=
func (h *AnnouncementHandler) ListAnnouncements(c *gin.Context) {
	includeExpired, err := boolQuery(c, "include_expired")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	items, err := h.announcements.List(c.Request.Context(), auth.Actor(c), services.AnnouncementListRequest{
		Category:       announcement.Category(c.Query("category")),
		IncludeExpired: includeExpired,
		Page:           page,
	})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", items)
}

// GetAnnouncement handles GET /api/announcements/:id
func (h *AnnouncementHandler) GetAnnouncement(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	a, err := h.announcements.Get(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", a)
}

// UpdateAnnouncement handles PATCH /api/announcements/:id
func (h *AnnouncementHandler) UpdateAnnouncement(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	a, err := h.announcements.Update(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Announcement updated", a)
}

// DeleteAnnouncement handles DELETE /api/announcements/:id
func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.announcements.Delete(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
