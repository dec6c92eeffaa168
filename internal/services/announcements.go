package services

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

// AnnouncementService publishes announcements to the members
type AnnouncementService struct {
	announcements announcement.Repository
	now           Clock
	log           *log.Logger
}

// NewAnnouncementService creates a new announcement service
func NewAnnouncementService(announcements announcement.Repository) *AnnouncementService {
	return &AnnouncementService{
		announcements: announcements,
		now:           time.Now,
		log:           logger.Service("announcements"),
	}
}

// CreateAnnouncementRequest represents a request to publish an announcement
type CreateAnnouncementRequest struct {
	Title       string                `json:"title" binding:"required"`
	Body        string                `json:"body" binding:"required"`
	Category    announcement.Category `json:"category"`
	Pinned      bool                  `json:"pinned"`
	PublishedAt *time.Time            `json:"published_at"`
	ExpiresAt   *time.Time            `json:"expires_at"`
}

// UpdateAnnouncementRequest holds the announcement fields to change
type UpdateAnnouncementRequest struct {
	Title       *string                `json:"title"`
	Body        *string                `json:"body"`
	Category    *announcement.Category `json:"category"`
	Pinned      *bool                  `json:"pinned"`
	PublishedAt *time.Time             `json:"published_at"`
	ExpiresAt   *time.Time             `json:"expires_at"`
	ClearExpiry bool                   `json:"clear_expiry"`
}

// AnnouncementListRequest narrows listings. Expired and scheduled entries are staff only.
type AnnouncementListRequest struct {
	Category       announcement.Category
	IncludeExpired bool
	Page           common.Page
}

// Create publishes an announcement. Staff only.
func (s *AnnouncementService) Create(ctx context.Context, actor common.Actor, req CreateAnnouncementRequest) (*announcement.Announcement, error) {
	if !actor.IsStaff() {
		return nil, announcement.ErrNotStaff
	}
	s.log.Debug("Creating announcement", "title", req.Title, "by", actor.ID)

	if err := validation.ValidateMaxLength(req.Title, 200, "title"); err != nil {
		return nil, err
	}
	if req.Category == "" {
		req.Category = announcement.CategoryGeneral
	}
	a := announcement.NewAnnouncement(req.Title, req.Body, req.Category, actor.ID)
	a.Pinned = req.Pinned
	if req.PublishedAt != nil {
		a.PublishedAt = *req.PublishedAt
	}
	a.ExpiresAt = req.ExpiresAt
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if err := s.announcements.Create(ctx, a); err != nil {
		s.log.Error("Failed to create announcement", "error", err)
		return nil, err
	}

	s.log.Info("Announcement published", "announcement_id", a.ID)
	return a, nil
}

// Get returns an announcement. Members only see active ones.
func (s *AnnouncementService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*announcement.Announcement, error) {
	a, err := s.announcements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !a.IsActiveAt(s.now()) {
		return nil, announcement.ErrNotFound
	}
	return a, nil
}

// List returns announcements pinned first, then newest
func (s *AnnouncementService) List(ctx context.Context, actor common.Actor, req AnnouncementListRequest) ([]*announcement.Announcement, error) {
	if req.Category != "" && !req.Category.Valid() {
		return nil, common.NewValidationError("category", "unknown category")
	}
	filter := announcement.Filter{Category: req.Category, Page: req.Page.Normalize()}
	if !req.IncludeExpired || !actor.IsStaff() {
		filter.ActiveAt = s.now().UTC()
	}
	return s.announcements.List(ctx, filter)
}

// Update changes an announcement. Staff only.
func (s *AnnouncementService) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateAnnouncementRequest) (*announcement.Announcement, error) {
	if !actor.IsStaff() {
		return nil, announcement.ErrNotStaff
	}
	a, err := s.announcements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if err := validation.ValidateMaxLength(*req.Title, 200, "title"); err != nil {
			return nil, err
		}
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		a.Body = *req.Body
	}
	if req.Category != nil {
		a.Category = *req.Category
	}
	if req.Pinned != nil {
		a.Pinned = *req.Pinned
	}
	if req.PublishedAt != nil {
		a.PublishedAt = *req.PublishedAt
	}
	if req.ExpiresAt != nil {
		a.ExpiresAt = req.ExpiresAt
	}
	if req.ClearExpiry {
		a.ExpiresAt = nil
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if err := s.announcements.Update(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("Announcement updated", "announcement_id", a.ID)
	return a, nil
}

// Delete removes an announcement. Staff only.
func (s *AnnouncementService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if !actor.IsStaff() {
		return announcement.ErrNotStaff
	}
	if err := s.announcements.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Announcement deleted", "announcement_id", id, "by", actor.ID)
	return nil
}
