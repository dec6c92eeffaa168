package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
	"github.com/gravadigital/community-portal/internal/validation"
)

// formMemory is the part of a multipart message kept in memory
const formMemory = 8 << 20

// ConversationHandler serves conversations, messages and their live stream
type ConversationHandler struct {
	messaging *services.MessagingService
	maxBody   int64
	log       *log.Logger
}

// NewConversationHandler creates the handler. maxFileSize bounds each attachment
// and, with some headroom, the whole multipart body.
func NewConversationHandler(messaging *services.MessagingService, maxFileSize int64) *ConversationHandler {
	return &ConversationHandler{
		messaging: messaging,
		maxBody:   10*maxFileSize + 1<<20,
		log:       logger.Handler("conversation_handler"),
	}
}

// UnreadResponse lists unread counts per conversation
type UnreadResponse struct {
	Total         int               `json:"total"`
	Conversations map[uuid.UUID]int `json:"conversations"`
}

// CreateConversation handles POST /api/conversations
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req services.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	conv, created, err := h.messaging.CreateConversation(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	if !created {
		response.SuccessResponse(c, http.StatusOK, "Existing conversation", conv)
		return
	}
	response.SuccessResponse(c, http.StatusCreated, "Conversation created", conv)
}

// ListConversations handles GET /api/conversations
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	summaries, err := h.messaging.List(c.Request.Context(), auth.Actor(c))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", summaries)
}

// GetConversation handles GET /api/conversations/:id
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	conv, err := h.messaging.Get(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", conv)
}

// ListMessages handles GET /api/conversations/:id/messages?before=&limit=
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}
	before, err := validation.ParseTime(c.Query("before"), "before")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	limit, err := validation.ParseInt(c.Query("limit"), "limit")
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	messages, err := h.messaging.Messages(c.Request.Context(), auth.Actor(c), id, message.PageQuery{Before: before, Limit: limit})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", messages)
}

// SendMessage handles POST /api/conversations/:id/messages. JSON bodies carry
// text only; multipart bodies add files under the "files" field.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.SendMessageRequest
	var uploads []services.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
		form, err := c.MultipartForm()
		if err != nil {
			response.BadRequestError(c, "invalid multipart body: "+err.Error())
			return
		}
		defer form.RemoveAll()

		if values := form.Value["content"]; len(values) > 0 {
			req.Content = values[0]
		}
		files, err := openUploads(form.File["files"])
		defer closeUploads(files)
		if err != nil {
			response.BadRequestError(c, "could not read attachment: "+err.Error())
			return
		}
		uploads = files
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	m, err := h.messaging.Send(c.Request.Context(), auth.Actor(c), id, req, uploads)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Message sent", m)
}

func openUploads(headers []*multipart.FileHeader) ([]services.Upload, error) {
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return uploads, err
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		uploads = append(uploads, services.Upload{
			FileName:    fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Reader:      f,
		})
	}
	return uploads, nil
}

func closeUploads(uploads []services.Upload) {
	for _, u := range uploads {
		if f, ok := u.Reader.(multipart.File); ok {
			f.Close()
		}
	}
}

// MarkRead handles POST /api/conversations/:id/read
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.messaging.MarkRead(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Unread handles GET /api/messages/unread
func (h *ConversationHandler) Unread(c *gin.Context) {
	counts, total, err := h.messaging.Unread(c.Request.Context(), auth.Actor(c))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	if counts == nil {
		counts = map[uuid.UUID]int{}
	}

	response.SuccessResponse(c, http.StatusOK, "", UnreadResponse{Total: total, Conversations: counts})
}

// Stream handles GET /api/conversations/:id/stream. New messages from other
// participants are pushed as "message" events.
func (h *ConversationHandler) Stream(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	actor := auth.Actor(c)
	messages, err := h.messaging.Watch(c.Request.Context(), actor, id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	h.log.Debug("Conversation stream opened", "conversation_id", id, "profile_id", actor.ID)
	openStream(c)
	streamEvents(c, "message", messages, func(m *message.Message) any { return m })
	h.log.Debug("Conversation stream closed", "conversation_id", id, "profile_id", actor.ID)
}
