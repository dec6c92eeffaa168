package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/services"
)

type fakeResolver map[string]*services.Session

func (f fakeResolver) GetSession(_ context.Context, token string) (*services.Session, error) {
	if s, ok := f[token]; ok {
		return s, nil
	}
	return nil, services.ErrInvalidToken
}

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := profile.NewProfile("ana@example.org", "Ana", "Diaz")
	p.ID = uuid.New()
	resolver := fakeResolver{"good": {ID: uuid.New(), Profile: p}}

	router := gin.New()
	router.GET("/me", RequireSession(resolver), func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c).ID.String())
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "missing", status: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer good", status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", status: http.StatusOK},
		{name: "query token", query: "?access_token=good", status: http.StatusOK},
		{name: "unknown token", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic good", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, p.ID.String(), rec.Body.String())
			}
		})
	}
}

func TestActorWithoutSession(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, Session(c))
	assert.Equal(t, uuid.Nil, Actor(c).ID)
}
