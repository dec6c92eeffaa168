package events

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/logger"
)

func TestCreateEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	logger.InitializeWithWriter(&logs, "debug")
	t.Cleanup(func() { logger.Logger = nil })

	router := gin.New()
	router.Use(CreateEvent())
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	t.Run("generates an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		id := rec.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("reuses a valid incoming id", func(t *testing.T) {
		incoming := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, incoming)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, incoming, rec.Header().Get(RequestIDHeader))
	})

	t.Run("replaces a malformed incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
	})

	t.Run("logs client errors as warnings", func(t *testing.T) {
		logs.Reset()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, logs.String(), "WARN")
		assert.Contains(t, logs.String(), "Request completed")
	})
}
