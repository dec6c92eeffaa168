package services

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

// ProjectService manages projects and their members
type ProjectService struct {
	projects project.Repository
	profiles profile.Repository
	now      Clock
	log      *log.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projects project.Repository, profiles profile.Repository) *ProjectService {
	return &ProjectService{
		projects: projects,
		profiles: profiles,
		now:      time.Now,
		log:      logger.Service("projects"),
	}
}

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// UpdateProjectRequest holds the project fields to change
type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// SetProjectStatusRequest represents a status transition
type SetProjectStatusRequest struct {
	Status project.Status `json:"status" binding:"required"`
}

// AddMemberRequest represents a new project member
type AddMemberRequest struct {
	ProfileID string `json:"profile_id" binding:"required"`
}

// Create stores a project owned by the actor
func (s *ProjectService) Create(ctx context.Context, actor common.Actor, req CreateProjectRequest) (*project.Project, error) {
	s.log.Debug("Creating project", "name", req.Name, "by", actor.ID)

	if err := validation.ValidateMaxLength(req.Name, 200, "name"); err != nil {
		return nil, err
	}
	p := project.NewProject(req.Name, req.Description, actor.ID)
	p.StartDate = req.StartDate
	p.EndDate = req.EndDate
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, p); err != nil {
		s.log.Error("Failed to create project", "error", err)
		return nil, err
	}

	s.log.Info("Project created", "project_id", p.ID)
	return s.projects.GetByID(ctx, p.ID)
}

// Get returns a project with its members
func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// List returns projects, optionally by status
func (s *ProjectService) List(ctx context.Context, status project.Status) ([]*project.Project, error) {
	if status != "" && !status.Valid() {
		return nil, common.NewValidationError("status", "unknown status")
	}
	return s.projects.List(ctx, status)
}

// ListMine returns the projects the actor is a member of
func (s *ProjectService) ListMine(ctx context.Context, actor common.Actor) ([]*project.Project, error) {
	return s.projects.ListForMember(ctx, actor.ID)
}

// Update changes a project. Owner or staff only.
func (s *ProjectService) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateProjectRequest) (*project.Project, error) {
	p, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := validation.ValidateMaxLength(*req.Name, 200, "name"); err != nil {
			return nil, err
		}
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		p.EndDate = req.EndDate
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("Project updated", "project_id", p.ID)
	return p, nil
}

// SetStatus moves a project through its lifecycle. Owner or staff only.
func (s *ProjectService) SetStatus(ctx context.Context, actor common.Actor, id uuid.UUID, req SetProjectStatusRequest) (*project.Project, error) {
	p, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := p.UpdateStatus(req.Status); err != nil {
		return nil, err
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("Project status changed", "project_id", id, "status", p.Status, "by", actor.ID)
	return p, nil
}

// Delete removes a project. Its notes are kept without a project.
func (s *ProjectService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Project deleted", "project_id", id, "by", actor.ID)
	return nil
}

// AddMember adds a profile to the project. Owner or staff only.
func (s *ProjectService) AddMember(ctx context.Context, actor common.Actor, id uuid.UUID, req AddMemberRequest) (*project.Member, error) {
	profileID, err := validation.ParseUUID(req.ProfileID, "profile_id")
	if err != nil {
		return nil, err
	}
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return nil, err
	}
	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return nil, err
	}

	m := &project.Member{
		ProjectID: id,
		ProfileID: profileID,
		Role:      project.RoleMember,
		JoinedAt:  s.now().UTC(),
	}
	if err := s.projects.AddMember(ctx, m); err != nil {
		return nil, err
	}

	s.log.Info("Project member added", "project_id", id, "profile_id", profileID)
	return m, nil
}

// RemoveMember removes a member. Managers remove anyone but the owner; members may leave.
func (s *ProjectService) RemoveMember(ctx context.Context, actor common.Actor, id, profileID uuid.UUID) error {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if profileID != actor.ID && !p.CanManage(actor) {
		return project.ErrNotOwner
	}
	if err := s.projects.RemoveMember(ctx, id, profileID); err != nil {
		return err
	}

	s.log.Info("Project member removed", "project_id", id, "profile_id", profileID, "by", actor.ID)
	return nil
}

// Members lists the members of a project
func (s *ProjectService) Members(ctx context.Context, id uuid.UUID) ([]*project.Member, error) {
	if _, err := s.projects.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.projects.ListMembers(ctx, id)
}

func (s *ProjectService) manageable(ctx context.Context, actor common.Actor, id uuid.UUID) (*project.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanManage(actor) {
		return nil, project.ErrNotOwner
	}
	return p, nil
}
