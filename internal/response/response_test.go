package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", common.Kind(common.ErrNotFound, "event not found"), http.StatusNotFound},
		{"unauthenticated", common.Kind(common.ErrUnauthenticated, "bad token"), http.StatusUnauthorized},
		{"forbidden", common.Kind(common.ErrForbidden, "staff only"), http.StatusForbidden},
		{"conflict wrapped", fmt.Errorf("register: %w", common.Kind(common.ErrConflict, "full")), http.StatusConflict},
		{"validation", common.NewValidationError("title", "is required"), http.StatusBadRequest},
		{"unclassified", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	FromError(c, logger, common.NewValidationError("email", "must have a valid format"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "email", body.Field)
	assert.Equal(t, http.StatusBadRequest, body.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	FromError(c, logger, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password authentication")
}
