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

// AuthHandler serves account creation and sessions
type AuthHandler struct {
	auth *services.AuthService
	log  *log.Logger
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		auth: authService,
		log:  logger.Handler("auth_handler"),
	}
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Account created", result)
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.auth.SignIn(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Signed in", result)
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := auth.Token(c)
	if token == "" {
		response.FromError(c, h.log, auth.ErrMissingToken)
		return
	}

	if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Signed out", nil)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	response.SuccessResponse(c, http.StatusOK, "", auth.Session(c))
}
