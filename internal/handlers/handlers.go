// Package handlers exposes the portal services over HTTP
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/validation"
)

// heartbeatInterval keeps idle event streams open through proxies
const heartbeatInterval = 25 * time.Second

// idParam parses a UUID path parameter. It answers the request and returns
// false when the value is malformed.
func idParam(c *gin.Context, log *log.Logger, name string) (uuid.UUID, bool) {
	id, err := validation.ParseUUID(c.Param(name), name)
	if err != nil {
		response.FromError(c, log, err)
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses an optional UUID query value
func optionalUUID(c *gin.Context, name string) (uuid.UUID, error) {
	value := c.Query(name)
	if value == "" {
		return uuid.Nil, nil
	}
	return validation.ParseUUID(value, name)
}

// pageQuery reads limit and offset
func pageQuery(c *gin.Context) (common.Page, error) {
	limit, err := validation.ParseInt(c.Query("limit"), "limit")
	if err != nil {
		return common.Page{}, err
	}
	offset, err := validation.ParseInt(c.Query("offset"), "offset")
	if err != nil {
		return common.Page{}, err
	}
	return common.Page{Limit: limit, Offset: offset}.Normalize(), nil
}

// rangeQuery reads the from and to calendar bounds
func rangeQuery(c *gin.Context) (common.DateRange, error) {
	from, err := validation.ParseTime(c.Query("from"), "from")
	if err != nil {
		return common.DateRange{}, err
	}
	to, err := validation.ParseTime(c.Query("to"), "to")
	if err != nil {
		return common.DateRange{}, err
	}
	return common.DateRange{From: from, To: to}, nil
}

// boolQuery reads an optional boolean flag
func boolQuery(c *gin.Context, name string) (bool, error) {
	value := c.Query(name)
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, common.NewValidationError(name, "must be a boolean")
	}
	return b, nil
}

// openStream writes the event-stream headers and flushes them, so clients know
// the subscription is in place before the first event.
func openStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

// streamEvents relays values from events as server-sent events named name
// until the client goes away or events is closed. send converts a value into
// the event payload.
func streamEvents[T any](c *gin.Context, name string, events <-chan T, send func(T) any) {
	ctx := c.Request.Context()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(name, send(v))
			c.Writer.Flush()
		case t := <-heartbeat.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
