package services

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

var (
	ErrSelfDeactivation = common.Kind(common.ErrConflict, "admins cannot deactivate or demote themselves")
)

// ProfileService manages profiles and the member directory
type ProfileService struct {
	profiles  profile.Repository
	cost      int
	validator validation.ProfileValidation
	log       *log.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profiles profile.Repository, bcryptCost int) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		cost:      bcryptCost,
		validator: validation.ProfileValidation{},
		log:       logger.Service("profiles"),
	}
}

// UpdateProfileRequest holds the fields a member may change on their own profile
type UpdateProfileRequest struct {
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Phone     *string   `json:"phone"`
	Bio       *string   `json:"bio"`
	Skills    *[]string `json:"skills"`
}

// DirectoryRequest lists members
type DirectoryRequest struct {
	Query  string
	Skill  string
	Role   profile.Role
	Status profile.Status
	Page   common.Page
}

// Directory is a page of the member directory
type Directory struct {
	Profiles []*profile.Profile `json:"profiles"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// SetRoleStatusRequest represents an admin change of role or status
type SetRoleStatusRequest struct {
	Role   profile.Role   `json:"role"`
	Status profile.Status `json:"status"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// Get returns a profile by id
func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// UpdateOwn applies the request to the actor's profile
func (s *ProfileService) UpdateOwn(ctx context.Context, actor common.Actor, req UpdateProfileRequest) (*profile.Profile, error) {
	s.log.Debug("Updating profile", "profile_id", actor.ID)

	p, err := s.profiles.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		if err := s.validator.ValidateName(*req.FirstName, "first_name"); err != nil {
			return nil, err
		}
		p.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if err := validation.ValidateMaxLength(*req.LastName, 100, "last_name"); err != nil {
			return nil, err
		}
		p.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		if err := validation.ValidateMaxLength(*req.Phone, 30, "phone"); err != nil {
			return nil, err
		}
		p.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Bio != nil {
		if err := validation.ValidateMaxLength(*req.Bio, 2000, "bio"); err != nil {
			return nil, err
		}
		p.Bio = *req.Bio
	}
	if req.Skills != nil {
		p.Skills = normalizeSkills(*req.Skills)
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("Profile updated", "profile_id", p.ID)
	return p, nil
}

func normalizeSkills(skills []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]bool, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, skill)
	}
	return out
}

// Directory lists profiles. Members only see active profiles.
func (s *ProfileService) Directory(ctx context.Context, actor common.Actor, req DirectoryRequest) (*Directory, error) {
	if req.Role != "" && !req.Role.Valid() {
		return nil, common.NewValidationError("role", "unknown role")
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, common.NewValidationError("status", "unknown status")
	}
	if !actor.IsStaff() {
		req.Status = profile.StatusActive
	}

	page := req.Page.Normalize()
	profiles, total, err := s.profiles.List(ctx, profile.DirectoryFilter{
		Query:  strings.TrimSpace(req.Query),
		Skill:  strings.TrimSpace(req.Skill),
		Role:   req.Role,
		Status: req.Status,
		Page:   page,
	})
	if err != nil {
		return nil, err
	}
	return &Directory{Profiles: profiles, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// SetRoleStatus changes the role or status of a profile. Admin only.
func (s *ProfileService) SetRoleStatus(ctx context.Context, actor common.Actor, id uuid.UUID, req SetRoleStatusRequest) (*profile.Profile, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if req.Role != "" && !req.Role.Valid() {
		return nil, common.NewValidationError("role", "unknown role")
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, common.NewValidationError("status", "unknown status")
	}
	if id == actor.ID && ((req.Role != "" && req.Role != profile.RoleAdmin) || (req.Status != "" && req.Status != profile.StatusActive)) {
		return nil, ErrSelfDeactivation
	}

	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Role != "" {
		p.Role = req.Role
	}
	if req.Status != "" {
		p.Status = req.Status
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("Profile role or status changed", "profile_id", p.ID, "role", p.Role, "status", p.Status, "by", actor.ID)
	return p, nil
}

// ChangePassword replaces the actor's password after checking the current one
func (s *ProfileService) ChangePassword(ctx context.Context, actor common.Actor, req ChangePasswordRequest) error {
	p, err := s.profiles.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := p.CheckPassword(req.CurrentPassword); err != nil {
		return err
	}
	if err := s.validator.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	if err := p.SetPassword(req.NewPassword, s.cost); err != nil {
		return err
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		return err
	}

	s.log.Info("Password changed", "profile_id", p.ID)
	return nil
}
