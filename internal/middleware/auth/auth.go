// Package auth resolves bearer tokens into sessions for protected routes
package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

const sessionKey = "session"

// ErrMissingToken is returned when a protected route gets no bearer token
var ErrMissingToken = common.Kind(common.ErrUnauthenticated, "missing bearer token")

// SessionResolver validates tokens
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*services.Session, error)
}

// RequireSession rejects requests without a valid session and stores it in the context
func RequireSession(resolver SessionResolver) gin.HandlerFunc {
	log := logger.HTTP()
	return func(c *gin.Context) {
		token := Token(c)
		if token == "" {
			response.FromError(c, log, ErrMissingToken)
			c.Abort()
			return
		}

		session, err := resolver.GetSession(c.Request.Context(), token)
		if err != nil {
			response.FromError(c, log, err)
			c.Abort()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// Token extracts the bearer token. EventSource clients cannot set headers,
// so the access_token query parameter is accepted as well.
func Token(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}

// Session returns the session stored by RequireSession
func Session(c *gin.Context) *services.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*services.Session); ok {
			return s
		}
	}
	return nil
}

// Actor returns the authenticated actor, or the zero actor on public routes
func Actor(c *gin.Context) common.Actor {
	if s := Session(c); s != nil {
		return s.Actor()
	}
	return common.Actor{}
}
