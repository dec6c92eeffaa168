package event

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

var (
	ErrNotFound         = common.Kind(common.ErrNotFound, "event not found")
	ErrCanceled         = common.Kind(common.ErrConflict, "event is canceled")
	ErrNotParticipant   = common.Kind(common.ErrNotFound, "profile has not responded to this event")
	ErrInvalidRSVP      = common.Kind(common.ErrInvalid, "unknown rsvp response")
	ErrInvalidCategory  = common.Kind(common.ErrInvalid, "unknown event category")
	ErrNotAllowedToEdit = common.Kind(common.ErrForbidden, "only the creator or staff can change this event")
)

// Category classifies agenda entries
type Category string

const (
	CategoryMeeting     Category = "meeting"
	CategoryWorkshop    Category = "workshop"
	CategorySocial      Category = "social"
	CategoryMaintenance Category = "maintenance"
	CategoryOther       Category = "other"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryMeeting, CategoryWorkshop, CategorySocial, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}

// Status is the lifecycle of an agenda entry
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCanceled  Status = "canceled"
)

// Event is an entry of the association agenda
type Event struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Location    string    `json:"location"`
	Category    Category  `json:"category" gorm:"type:varchar(20);not null;default:'other'"`
	Status      Status    `json:"status" gorm:"type:varchar(20);not null;default:'scheduled'"`
	StartAt     time.Time `json:"start_at" gorm:"not null;index"`
	EndAt       time.Time `json:"end_at" gorm:"not null"`
	AllDay      bool      `json:"all_day" gorm:"not null;default:false"`
	CreatedBy   uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM
func (Event) TableName() string {
	return "events"
}

// BeforeCreate sets a UUID before creating the record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewEvent creates a new scheduled event
func NewEvent(title, description string, category Category, createdBy uuid.UUID, startAt, endAt time.Time) *Event {
	now := time.Now()
	return &Event{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Description: description,
		Category:    category,
		Status:      StatusScheduled,
		StartAt:     startAt,
		EndAt:       endAt,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsCreator checks if the given profile created this event
func (e *Event) IsCreator(profileID uuid.UUID) bool {
	return e.CreatedBy == profileID
}

// CanEdit reports whether the actor may change the event
func (e *Event) CanEdit(actor common.Actor) bool {
	return e.IsCreator(actor.ID) || actor.IsStaff()
}

// Validate checks if the event data is valid
func (e *Event) Validate() error {
	if e.Title == "" {
		return common.NewValidationError("title", "is required")
	}
	if !e.Category.Valid() {
		return common.NewValidationError("category", "unknown category")
	}
	if e.CreatedBy == uuid.Nil {
		return common.NewValidationError("created_by", "is required")
	}
	if e.StartAt.IsZero() || e.EndAt.IsZero() {
		return common.NewValidationError("start_at", "start and end are required")
	}
	if e.EndAt.Before(e.StartAt) {
		return common.NewValidationError("end_at", "must be after start_at")
	}
	return nil
}

// Response is an RSVP answer
type Response string

const (
	ResponseAttending Response = "attending"
	ResponseMaybe     Response = "maybe"
	ResponseDeclined  Response = "declined"
)

// Valid reports whether r is a known answer
func (r Response) Valid() bool {
	switch r {
	case ResponseAttending, ResponseMaybe, ResponseDeclined:
		return true
	}
	return false
}

// Participant is a profile's RSVP to an event
type Participant struct {
	EventID     uuid.UUID `json:"event_id" gorm:"type:uuid;primaryKey"`
	ProfileID   uuid.UUID `json:"profile_id" gorm:"type:uuid;primaryKey"`
	Response    Response  `json:"response" gorm:"type:varchar(20);not null"`
	RespondedAt time.Time `json:"responded_at" gorm:"not null"`
}

// TableName overrides the table name used by GORM
func (Participant) TableName() string {
	return "event_participants"
}

// Filter narrows agenda listings
type Filter struct {
	Range           common.DateRange
	Category        Category
	IncludeCanceled bool
}

// Repository persists events and RSVPs
type Repository interface {
	// Create stores the event and the creator's attending RSVP atomically
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, filter Filter) ([]*Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetResponse(ctx context.Context, p *Participant) error
	RemoveResponse(ctx context.Context, eventID, profileID uuid.UUID) error
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*Participant, error)
}
