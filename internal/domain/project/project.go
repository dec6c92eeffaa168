package project

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

var (
	ErrNotFound          = common.Kind(common.ErrNotFound, "project not found")
	ErrMemberNotFound    = common.Kind(common.ErrNotFound, "member not found")
	ErrAlreadyMember     = common.Kind(common.ErrConflict, "profile is already a member of this project")
	ErrOwnerRemoval      = common.Kind(common.ErrConflict, "the project owner cannot be removed")
	ErrNotOwner          = common.Kind(common.ErrForbidden, "only the project owner or staff can do this")
	ErrInvalidTransition = common.Kind(common.ErrConflict, "invalid project status transition")
)

// Status is the lifecycle of a project
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPlanning:  {StatusActive},
	StatusActive:    {StatusOnHold, StatusCompleted},
	StatusOnHold:    {StatusActive},
	StatusCompleted: {},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Role is the role of a member inside a project
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Project is a piece of collective work of the association
type Project struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string     `json:"name" gorm:"not null"`
	Description string     `json:"description" gorm:"type:text"`
	Status      Status     `json:"status" gorm:"type:varchar(20);not null;default:'planning'"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	OwnerID     uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Members []Member `json:"members,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// Member links a profile to a project
type Member struct {
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;primaryKey"`
	ProfileID uuid.UUID `json:"profile_id" gorm:"type:uuid;primaryKey"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null"`
	JoinedAt  time.Time `json:"joined_at" gorm:"not null"`
}

// TableName overrides the table name
func (Project) TableName() string {
	return "projects"
}

// TableName overrides the table name
func (Member) TableName() string {
	return "project_members"
}

// BeforeCreate sets a UUID before creating the record
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewProject creates a project in planning owned by ownerID
func NewProject(name, description string, ownerID uuid.UUID) *Project {
	now := time.Now()
	return &Project{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: description,
		Status:      StatusPlanning,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks if the project data is valid
func (p *Project) Validate() error {
	if p.Name == "" {
		return common.NewValidationError("name", "is required")
	}
	if p.OwnerID == uuid.Nil {
		return common.NewValidationError("owner_id", "is required")
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return common.NewValidationError("end_date", "must be after start_date")
	}
	if !p.Status.Valid() {
		return common.NewValidationError("status", "unknown status")
	}
	return nil
}

// CanManage reports whether the actor may edit the project and its members
func (p *Project) CanManage(actor common.Actor) bool {
	return p.OwnerID == actor.ID || actor.IsStaff()
}

// CanTransitionTo checks if the project can move to a new status
func (p *Project) CanTransitionTo(next Status) bool {
	allowed, exists := transitions[p.Status]
	if !exists {
		return false
	}
	return slices.Contains(allowed, next)
}

// UpdateStatus updates the status if the transition is valid
func (p *Project) UpdateStatus(next Status) error {
	if !p.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}

// Repository persists projects and memberships
type Repository interface {
	// Create stores the project and the owner membership atomically
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, status Status) ([]*Project, error)
	ListForMember(ctx context.Context, profileID uuid.UUID) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, projectID, profileID uuid.UUID) error
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]*Member, error)
}
