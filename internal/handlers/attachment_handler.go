package handlers

import (
	"mime"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

// AttachmentHandler serves message attachment downloads
type AttachmentHandler struct {
	messaging *services.MessagingService
	log       *log.Logger
}

func NewAttachmentHandler(messaging *services.MessagingService) *AttachmentHandler {
	return &AttachmentHandler{
		messaging: messaging,
		log:       logger.Handler("attachment_handler"),
	}
}

// DownloadAttachment handles GET /api/attachments/:id
// Object stores that can presign get a redirect, others are streamed.
func (h *AttachmentHandler) DownloadAttachment(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	download, err := h.messaging.Attachment(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	if download.URL != "" {
		c.Redirect(http.StatusFound, download.URL)
		return
	}
	defer download.Body.Close()

	a := download.Attachment
	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}),
	}
	c.DataFromReader(http.StatusOK, a.Size, a.ContentType, download.Body, headers)
}
