package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

var (
	ErrManualStatus = common.Kind(common.ErrInvalid, "only completed and canceled can be set manually")
)

// PermanenceService schedules volunteer shifts and their registrations
type PermanenceService struct {
	permanences permanence.Repository
	profiles    profile.Repository
	log         *log.Logger
}

// NewPermanenceService creates a new permanence service
func NewPermanenceService(permanences permanence.Repository, profiles profile.Repository) *PermanenceService {
	return &PermanenceService{
		permanences: permanences,
		profiles:    profiles,
		log:         logger.Service("permanences"),
	}
}

// CreatePermanenceRequest represents a request to schedule a shift
type CreatePermanenceRequest struct {
	Title         string    `json:"title" binding:"required"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	StartAt       time.Time `json:"start_at" binding:"required"`
	EndAt         time.Time `json:"end_at" binding:"required"`
	MinVolunteers int       `json:"min_volunteers"`
	MaxVolunteers int       `json:"max_volunteers" binding:"required"`
}

// UpdatePermanenceRequest holds the shift fields to change
type UpdatePermanenceRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Location      *string    `json:"location"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	MinVolunteers *int       `json:"min_volunteers"`
	MaxVolunteers *int       `json:"max_volunteers"`
}

// SetPermanenceStatusRequest represents a manual status change
type SetPermanenceStatusRequest struct {
	Status permanence.Status `json:"status" binding:"required"`
}

// PermanenceListRequest narrows shift listings. Mine restricts to the actor's registrations.
type PermanenceListRequest struct {
	Range  common.DateRange
	Status permanence.Status
	Mine   bool
}

// PermanenceView is a shift with its coverage
type PermanenceView struct {
	*permanence.Permanence
	Volunteers int                      `json:"volunteers"`
	Staffing   permanence.StaffingLevel `json:"staffing"`
}

func newPermanenceView(p *permanence.Permanence, count int) *PermanenceView {
	return &PermanenceView{Permanence: p, Volunteers: count, Staffing: p.Staffing(count)}
}

// Create schedules a shift. Staff only.
func (s *PermanenceService) Create(ctx context.Context, actor common.Actor, req CreatePermanenceRequest) (*PermanenceView, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	s.log.Debug("Creating permanence", "title", req.Title, "by", actor.ID)

	if err := validation.ValidateMaxLength(req.Title, 200, "title"); err != nil {
		return nil, err
	}
	p := permanence.NewPermanence(req.Title, req.StartAt, req.EndAt, req.MinVolunteers, req.MaxVolunteers, actor.ID)
	p.Description = req.Description
	p.Location = strings.TrimSpace(req.Location)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.permanences.Create(ctx, p); err != nil {
		s.log.Error("Failed to create permanence", "error", err)
		return nil, err
	}

	s.log.Info("Permanence created", "permanence_id", p.ID)
	return newPermanenceView(p, 0), nil
}

// Get returns a shift with its volunteers
func (s *PermanenceService) Get(ctx context.Context, id uuid.UUID) (*PermanenceView, error) {
	p, err := s.permanences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newPermanenceView(p, len(p.Participants)), nil
}

// List returns the shifts overlapping the range
func (s *PermanenceService) List(ctx context.Context, actor common.Actor, req PermanenceListRequest) ([]*PermanenceView, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, common.NewValidationError("status", "unknown status")
	}
	filter := permanence.Filter{Range: req.Range, Status: req.Status}
	if req.Mine {
		filter.ProfileID = actor.ID
	}

	items, err := s.permanences.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]*PermanenceView, 0, len(items))
	for _, p := range items {
		count, err := s.permanences.CountParticipants(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, newPermanenceView(p, count))
	}
	return views, nil
}

// Update changes a shift. Staff only. The capacity cannot drop below the current load.
func (s *PermanenceService) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdatePermanenceRequest) (*PermanenceView, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	p, err := s.permanences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if err := validation.ValidateMaxLength(*req.Title, 200, "title"); err != nil {
			return nil, err
		}
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Location != nil {
		p.Location = strings.TrimSpace(*req.Location)
	}
	if req.StartAt != nil {
		p.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		p.EndAt = *req.EndAt
	}
	if req.MinVolunteers != nil {
		p.MinVolunteers = *req.MinVolunteers
	}
	if req.MaxVolunteers != nil {
		p.MaxVolunteers = *req.MaxVolunteers
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	p.Participants = nil
	if err := s.permanences.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("Permanence updated", "permanence_id", p.ID, "status", p.Status)
	return s.Get(ctx, id)
}

// SetStatus completes or cancels a shift. Staff only; full and open are derived from the load.
func (s *PermanenceService) SetStatus(ctx context.Context, actor common.Actor, id uuid.UUID, req SetPermanenceStatusRequest) (*PermanenceView, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if req.Status != permanence.StatusCompleted && req.Status != permanence.StatusCanceled {
		return nil, ErrManualStatus
	}

	p, err := s.permanences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.UpdateStatus(req.Status); err != nil {
		return nil, err
	}

	p.Participants = nil
	if err := s.permanences.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to set permanence status: %w", err)
	}
	s.log.Info("Permanence status changed", "permanence_id", id, "status", p.Status, "by", actor.ID)
	return s.Get(ctx, id)
}

// Delete removes a shift and its registrations. Staff only.
func (s *PermanenceService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.permanences.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Permanence deleted", "permanence_id", id, "by", actor.ID)
	return nil
}

// Register signs a volunteer up. A nil profileID registers the actor; staff may
// register someone else, who must have an active profile.
func (s *PermanenceService) Register(ctx context.Context, actor common.Actor, id, profileID uuid.UUID) (*PermanenceView, error) {
	volunteer, err := s.volunteer(actor, profileID)
	if err != nil {
		return nil, err
	}
	if volunteer != actor.ID {
		p, err := s.profiles.GetByID(ctx, volunteer)
		if err != nil {
			return nil, err
		}
		if !p.IsActive() {
			return nil, profile.ErrInactive
		}
	}
	s.log.Debug("Registering volunteer", "permanence_id", id, "profile_id", volunteer)

	p, err := s.permanences.Register(ctx, id, volunteer)
	if err != nil {
		s.log.Warn("Registration rejected", "permanence_id", id, "profile_id", volunteer, "error", err)
		return nil, err
	}

	s.log.Info("Volunteer registered", "permanence_id", id, "profile_id", volunteer, "status", p.Status)
	return newPermanenceView(p, len(p.Participants)), nil
}

// Unregister removes a volunteer. A nil profileID unregisters the actor.
func (s *PermanenceService) Unregister(ctx context.Context, actor common.Actor, id, profileID uuid.UUID) (*PermanenceView, error) {
	volunteer, err := s.volunteer(actor, profileID)
	if err != nil {
		return nil, err
	}

	p, err := s.permanences.Unregister(ctx, id, volunteer)
	if err != nil {
		return nil, err
	}

	s.log.Info("Volunteer unregistered", "permanence_id", id, "profile_id", volunteer, "status", p.Status)
	return newPermanenceView(p, len(p.Participants)), nil
}

// Participants lists the volunteers of a shift
func (s *PermanenceService) Participants(ctx context.Context, id uuid.UUID) ([]*permanence.Participant, error) {
	if _, err := s.permanences.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.permanences.ListParticipants(ctx, id)
}

func (s *PermanenceService) volunteer(actor common.Actor, profileID uuid.UUID) (uuid.UUID, error) {
	if profileID == uuid.Nil || profileID == actor.ID {
		return actor.ID, nil
	}
	if !actor.IsStaff() {
		return uuid.Nil, ErrStaffOnly
	}
	return profileID, nil
}
