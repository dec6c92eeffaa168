package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

type NoteHandler struct {
	notes *services.NoteService
	log   *log.Logger
}

func NewNoteHandler(notes *services.NoteService) *NoteHandler {
	return &NoteHandler{
		notes: notes,
		log:   logger.Handler("note_handler"),
	}
}

// CreateNote handles POST /api/notes
func (h *NoteHandler) CreateNote(c *gin.Context) {
	var req services.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	n, err := h.notes.Create(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Note created", n)
}

// ListNotes handles GET /api/notes?author_id=&project_id=&tag=
func (h *NoteHandler) ListNotes(c *gin.Context) {
	req := services.NoteListRequest{Tag: c.Query("tag")}
	var err error
	if req.AuthorID, err = optionalUUID(c, "author_id"); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	if req.ProjectID, err = optionalUUID(c, "project_id"); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	if req.Page, err = pageQuery(c); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	notes, err := h.notes.List(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", notes)
}

// GetNote handles GET /api/notes/:id
func (h *NoteHandler) GetNote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	n, err := h.notes.Get(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", n)
}

// UpdateNote handles PATCH /api/notes/:id
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	n, err := h.notes.Update(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Note updated", n)
}

// DeleteNote handles DELETE /api/notes/:id
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.notes.Delete(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
