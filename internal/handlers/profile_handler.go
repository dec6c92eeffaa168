package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

// ProfileHandler serves the member's own profile and the directory
type ProfileHandler struct {
	profiles *services.ProfileService
	log      *log.Logger
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		log:      logger.Handler("profile_handler"),
	}
}

// Me handles GET /api/me
func (h *ProfileHandler) Me(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), auth.Actor(c).ID)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", p)
}

// UpdateMe handles PATCH /api/me
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.profiles.UpdateOwn(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Profile updated", p)
}

// ChangePassword handles PUT /api/me/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.profiles.ChangePassword(c.Request.Context(), auth.Actor(c), req); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Password changed", nil)
}

// Directory handles GET /api/profiles?q=&skill=&role=&status=
func (h *ProfileHandler) Directory(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	dir, err := h.profiles.Directory(c.Request.Context(), auth.Actor(c), services.DirectoryRequest{
		Query:  c.Query("q"),
		Skill:  c.Query("skill"),
		Role:   profile.Role(c.Query("role")),
		Status: profile.Status(c.Query("status")),
		Page:   page,
	})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", dir)
}

// GetProfile handles GET /api/profiles/:id
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	actor := auth.Actor(c)
	if !p.IsActive() && !actor.IsStaff() && actor.ID != p.ID {
		response.FromError(c, h.log, profile.ErrNotFound)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", p)
}

// SetAccess handles PATCH /api/profiles/:id/access
func (h *ProfileHandler) SetAccess(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.SetRoleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.profiles.SetRoleStatus(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Profile access updated", p)
}
