package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
	log      *log.Logger
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		log:      logger.Handler("project_handler"),
	}
}

// CreateProject handles POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.projects.Create(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Project created", p)
}

// ListProjects handles GET /api/projects?status=&mine=
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	mine, err := boolQuery(c, "mine")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	var projects []*project.Project
	if mine {
		projects, err = h.projects.ListMine(c.Request.Context(), auth.Actor(c))
	} else {
		projects, err = h.projects.List(c.Request.Context(), project.Status(c.Query("status")))
	}
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", projects)
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	p, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", p)
}

// UpdateProject handles PATCH /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.projects.Update(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Project updated", p)
}

// SetStatus handles PUT /api/projects/:id/status
func (h *ProjectHandler) SetStatus(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.SetProjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.projects.SetStatus(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Project status updated", p)
}

// DeleteProject handles DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMembers handles GET /api/projects/:id/members
func (h *ProjectHandler) GetMembers(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	members, err := h.projects.Members(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", members)
}

// AddMember handles POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	m, err := h.projects.AddMember(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Member added", m)
}

// RemoveMember handles DELETE /api/projects/:id/members/:profile_id
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}
	profileID, ok := idParam(c, h.log, "profile_id")
	if !ok {
		return
	}

	if err := h.projects.RemoveMember(c.Request.Context(), auth.Actor(c), id, profileID); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
