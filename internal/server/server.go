package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/handlers"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/middleware/events"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

// HealthChecker reports whether the storage backend is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	services   *services.Services
	health     HealthChecker
}

// New creates a new server instance
func New(cfg *config.Config, svc *services.Services, health HealthChecker) *Server {
	return &Server{
		config:   cfg,
		services: svc,
		health:   health,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: s.Router(),

		// WriteTimeout stays unset: event streams are long-lived
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router configures the HTTP router with middleware and routes
func (s *Server) Router() *gin.Engine {
	switch mode := s.config.Server.GinMode; {
	case s.config.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case mode == gin.DebugMode || mode == gin.ReleaseMode || mode == gin.TestMode:
		gin.SetMode(mode)
	}

	router := gin.New()

	router.Use(events.CreateEvent())
	router.Use(gin.Recovery())

	router.Use(cors.New(s.corsConfig()))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": s.config.App.Name + " is running",
			"status":  "healthy",
		})
	})
	router.GET("/health", s.healthCheck)

	s.setupAPIRoutes(router)

	return router
}

func (s *Server) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	if origins := s.config.AllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	if methods := s.config.AllowedMethods(); len(methods) > 0 {
		corsConfig.AllowMethods = methods
	}
	if headers := s.config.AllowedHeaders(); len(headers) > 0 {
		corsConfig.AllowHeaders = headers
	}
	corsConfig.ExposeHeaders = []string{events.RequestIDHeader}
	return corsConfig
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Health(ctx); err != nil {
		logger.HTTP().Error("Health check failed", "error", err)
		response.ErrorResponseWithMessage(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	response.SuccessResponse(c, http.StatusOK, "healthy", gin.H{"storage": s.config.Storage.Type})
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(router *gin.Engine) {
	svc := s.services
	authHandler := handlers.NewAuthHandler(svc.Auth)
	profileHandler := handlers.NewProfileHandler(svc.Profiles)
	eventHandler := handlers.NewEventHandler(svc.Events)
	permanenceHandler := handlers.NewPermanenceHandler(svc.Permanences)
	voteHandler := handlers.NewVoteHandler(svc.Votes)
	projectHandler := handlers.NewProjectHandler(svc.Projects)
	noteHandler := handlers.NewNoteHandler(svc.Notes)
	announcementHandler := handlers.NewAnnouncementHandler(svc.Announcements)
	conversationHandler := handlers.NewConversationHandler(svc.Messaging, s.config.Upload.MaxFileSize)
	attachmentHandler := handlers.NewAttachmentHandler(svc.Messaging)
	changeHandler := handlers.NewChangeHandler(svc.Changes)

	api := router.Group("/api")

	public := api.Group("/auth")
	{
		public.POST("/signup", authHandler.SignUp)
		public.POST("/signin", authHandler.SignIn)
		public.POST("/signout", authHandler.SignOut)
	}

	protected := api.Group("")
	protected.Use(auth.RequireSession(svc.Auth))
	{
		protected.GET("/auth/session", authHandler.Session)

		me := protected.Group("/me")
		{
			me.GET("", profileHandler.Me)
			me.PATCH("", profileHandler.UpdateMe)
			me.PUT("/password", profileHandler.ChangePassword)
		}

		profiles := protected.Group("/profiles")
		{
			profiles.GET("", profileHandler.Directory)
			profiles.GET("/:id", profileHandler.GetProfile)
			profiles.PATCH("/:id/access", profileHandler.SetAccess)
		}

		evts := protected.Group("/events")
		{
			evts.GET("", eventHandler.ListEvents)
			evts.POST("", eventHandler.CreateEvent)
			evts.GET("/:id", eventHandler.GetEvent)
			evts.PATCH("/:id", eventHandler.UpdateEvent)
			evts.DELETE("/:id", eventHandler.DeleteEvent)
			evts.POST("/:id/cancel", eventHandler.CancelEvent)
			evts.GET("/:id/participants", eventHandler.GetParticipants)
			evts.PUT("/:id/rsvp", eventHandler.RSVP)
			evts.DELETE("/:id/rsvp", eventHandler.RemoveRSVP)
		}

		permanences := protected.Group("/permanences")
		{
			permanences.GET("", permanenceHandler.ListPermanences)
			permanences.POST("", permanenceHandler.CreatePermanence)
			permanences.GET("/:id", permanenceHandler.GetPermanence)
			permanences.PATCH("/:id", permanenceHandler.UpdatePermanence)
			permanences.DELETE("/:id", permanenceHandler.DeletePermanence)
			permanences.PUT("/:id/status", permanenceHandler.SetStatus)
			permanences.GET("/:id/volunteers", permanenceHandler.GetVolunteers)
			permanences.POST("/:id/volunteers", permanenceHandler.Register)
			permanences.DELETE("/:id/volunteers", permanenceHandler.Unregister)
		}

		votes := protected.Group("/votes")
		{
			votes.GET("", voteHandler.ListVotes)
			votes.POST("", voteHandler.CreateVote)
			votes.GET("/:id", voteHandler.GetVote)
			votes.PATCH("/:id", voteHandler.UpdateVote)
			votes.DELETE("/:id", voteHandler.DeleteVote)
			votes.POST("/:id/open", voteHandler.OpenVote)
			votes.POST("/:id/close", voteHandler.CloseVote)
			votes.GET("/:id/ballot", voteHandler.GetBallot)
			votes.POST("/:id/ballot", voteHandler.CastBallot)
			votes.GET("/:id/results", voteHandler.GetResults)
		}

		projects := protected.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.PUT("/:id/status", projectHandler.SetStatus)
			projects.GET("/:id/members", projectHandler.GetMembers)
			projects.POST("/:id/members", projectHandler.AddMember)
			projects.DELETE("/:id/members/:profile_id", projectHandler.RemoveMember)
		}

		notes := protected.Group("/notes")
		{
			notes.GET("", noteHandler.ListNotes)
			notes.POST("", noteHandler.CreateNote)
			notes.GET("/:id", noteHandler.GetNote)
			notes.PATCH("/:id", noteHandler.UpdateNote)
			notes.DELETE("/:id", noteHandler.DeleteNote)
		}

		announcements := protected.Group("/announcements")
		{
			announcements.GET("", announcementHandler.ListAnnouncements)
			announcements.POST("", announcementHandler.CreateAnnouncement)
			announcements.GET("/:id", announcementHandler.GetAnnouncement)
			announcements.PATCH("/:id", announcementHandler.UpdateAnnouncement)
			announcements.DELETE("/:id", announcementHandler.DeleteAnnouncement)
		}

		conversations := protected.Group("/conversations")
		{
			conversations.GET("", conversationHandler.ListConversations)
			conversations.POST("", conversationHandler.CreateConversation)
			conversations.GET("/:id", conversationHandler.GetConversation)
			conversations.GET("/:id/messages", conversationHandler.ListMessages)
			conversations.POST("/:id/messages", conversationHandler.SendMessage)
			conversations.POST("/:id/read", conversationHandler.MarkRead)
			conversations.GET("/:id/stream", conversationHandler.Stream)
		}

		protected.GET("/messages/unread", conversationHandler.Unread)
		protected.GET("/attachments/:id", attachmentHandler.DownloadAttachment)

		protected.GET("/changes", changeHandler.Follow)
		protected.GET("/changes/tables", changeHandler.ListTables)
	}
}
