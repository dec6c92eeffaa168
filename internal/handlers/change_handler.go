package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

// ChangeHandler streams row changes so clients can refresh their views
type ChangeHandler struct {
	changes *services.ChangeFeedService
	log     *log.Logger
}

func NewChangeHandler(changes *services.ChangeFeedService) *ChangeHandler {
	return &ChangeHandler{
		changes: changes,
		log:     logger.Handler("change_handler"),
	}
}

// ListTables handles GET /api/changes/tables
func (h *ChangeHandler) ListTables(c *gin.Context) {
	response.SuccessResponse(c, http.StatusOK, "", h.changes.Tables(auth.Actor(c)))
}

// Follow handles GET /api/changes?table=&column=&value=
// Each matching change is sent as a "change" event.
func (h *ChangeHandler) Follow(c *gin.Context) {
	table := c.Query("table")
	sub, err := h.changes.Follow(c.Request.Context(), auth.Actor(c), table, c.Query("column"), c.Query("value"))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	defer sub.Close()

	h.log.Debug("Change stream opened", "table", table)
	openStream(c)
	streamEvents(c, "change", sub.Changes(), func(change realtime.Change) any { return change })
	h.log.Debug("Change stream closed", "table", table, "dropped", sub.Dropped())
}
