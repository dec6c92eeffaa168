package permanence

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
	ErrNotFound          = common.Kind(common.ErrNotFound, "permanence not found")
	ErrFull              = common.Kind(common.ErrConflict, "permanence is full")
	ErrNotOpen           = common.Kind(common.ErrConflict, "permanence is not open for registration")
	ErrAlreadyRegistered = common.Kind(common.ErrConflict, "profile is already registered")
	ErrNotRegistered     = common.Kind(common.ErrNotFound, "profile is not registered")
	ErrInvalidTransition = common.Kind(common.ErrConflict, "invalid permanence status transition")
	ErrCapacityBelowLoad = common.Kind(common.ErrConflict, "max_volunteers is lower than the current number of volunteers")
)

// Status is the lifecycle of a shift
type Status string

const (
	StatusOpen      Status = "open"
	StatusFull      Status = "full"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

var transitions = map[Status][]Status{
	StatusOpen:      {StatusFull, StatusCompleted, StatusCanceled},
	StatusFull:      {StatusOpen, StatusCompleted, StatusCanceled},
	StatusCompleted: {},
	StatusCanceled:  {},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// StaffingLevel summarizes how well a shift is covered
type StaffingLevel string

const (
	Understaffed StaffingLevel = "understaffed"
	Staffed      StaffingLevel = "staffed"
	Saturated    StaffingLevel = "full"
)

// Permanence is a scheduled volunteer staffing shift with a capacity range
type Permanence struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title         string    `json:"title" gorm:"not null"`
	Description   string    `json:"description" gorm:"type:text"`
	Location      string    `json:"location"`
	StartAt       time.Time `json:"start_at" gorm:"not null;index"`
	EndAt         time.Time `json:"end_at" gorm:"not null"`
	MinVolunteers int       `json:"min_volunteers" gorm:"not null"`
	MaxVolunteers int       `json:"max_volunteers" gorm:"not null"`
	Status        Status    `json:"status" gorm:"type:varchar(20);not null;default:'open'"`
	CreatedBy     uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:PermanenceID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM
func (Permanence) TableName() string {
	return "permanences"
}

// BeforeCreate sets a UUID before creating the record
func (p *Permanence) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewPermanence creates an open shift
func NewPermanence(title string, startAt, endAt time.Time, minVolunteers, maxVolunteers int, createdBy uuid.UUID) *Permanence {
	now := time.Now()
	return &Permanence{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(title),
		StartAt:       startAt,
		EndAt:         endAt,
		MinVolunteers: minVolunteers,
		MaxVolunteers: maxVolunteers,
		Status:        StatusOpen,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks if the permanence data is valid
func (p *Permanence) Validate() error {
	if p.Title == "" {
		return common.NewValidationError("title", "is required")
	}
	if p.StartAt.IsZero() || p.EndAt.IsZero() {
		return common.NewValidationError("start_at", "start and end are required")
	}
	if !p.EndAt.After(p.StartAt) {
		return common.NewValidationError("end_at", "must be after start_at")
	}
	if p.MinVolunteers < 0 {
		return common.NewValidationError("min_volunteers", "must not be negative")
	}
	if p.MaxVolunteers < 1 {
		return common.NewValidationError("max_volunteers", "must be at least 1")
	}
	if p.MinVolunteers > p.MaxVolunteers {
		return common.NewValidationError("min_volunteers", "must not exceed max_volunteers")
	}
	if !p.Status.Valid() {
		return common.NewValidationError("status", "unknown status")
	}
	return nil
}

// CanTransitionTo checks if the permanence can move to a new status
func (p *Permanence) CanTransitionTo(next Status) bool {
	allowed, exists := transitions[p.Status]
	if !exists {
		return false
	}
	return slices.Contains(allowed, next)
}

// UpdateStatus updates the status if the transition is valid
func (p *Permanence) UpdateStatus(next Status) error {
	if !p.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}

// CheckRegistration checks whether a volunteer can join given the current count.
// Rejections are ordered: closed shift, duplicate registration, capacity.
func (p *Permanence) CheckRegistration(count int, registered bool) error {
	if p.Status != StatusOpen && p.Status != StatusFull {
		return ErrNotOpen
	}
	if registered {
		return ErrAlreadyRegistered
	}
	if p.Status == StatusFull || count >= p.MaxVolunteers {
		return ErrFull
	}
	return nil
}

// StatusAfterCount returns the status the shift should have with count volunteers.
// Terminal statuses are never changed.
func (p *Permanence) StatusAfterCount(count int) Status {
	switch p.Status {
	case StatusOpen:
		if count >= p.MaxVolunteers {
			return StatusFull
		}
	case StatusFull:
		if count < p.MaxVolunteers {
			return StatusOpen
		}
	}
	return p.Status
}

// Staffing returns the coverage for count volunteers
func (p *Permanence) Staffing(count int) StaffingLevel {
	switch {
	case count >= p.MaxVolunteers:
		return Saturated
	case count >= p.MinVolunteers:
		return Staffed
	default:
		return Understaffed
	}
}

// Participant is a volunteer registration
type Participant struct {
	PermanenceID uuid.UUID `json:"permanence_id" gorm:"type:uuid;primaryKey"`
	ProfileID    uuid.UUID `json:"profile_id" gorm:"type:uuid;primaryKey"`
	RegisteredAt time.Time `json:"registered_at" gorm:"not null"`
}

// TableName overrides the table name used by GORM
func (Participant) TableName() string {
	return "permanence_participants"
}

// Filter narrows shift listings
type Filter struct {
	Range     common.DateRange
	Status    Status
	ProfileID uuid.UUID
}

// Repository persists shifts and registrations. Register and Unregister apply the
// capacity rules inside a single transaction holding a lock on the shift.
type Repository interface {
	Create(ctx context.Context, p *Permanence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Permanence, error)
	List(ctx context.Context, filter Filter) ([]*Permanence, error)
	Update(ctx context.Context, p *Permanence) error
	Delete(ctx context.Context, id uuid.UUID) error

	Register(ctx context.Context, permanenceID, profileID uuid.UUID) (*Permanence, error)
	Unregister(ctx context.Context, permanenceID, profileID uuid.UUID) (*Permanence, error)
	ListParticipants(ctx context.Context, permanenceID uuid.UUID) ([]*Participant, error)
	CountParticipants(ctx context.Context, permanenceID uuid.UUID) (int, error)
}
