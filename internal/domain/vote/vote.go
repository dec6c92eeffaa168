package vote

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

var (
	ErrNotFound          = common.Kind(common.ErrNotFound, "vote not found")
	ErrNotActive         = common.Kind(common.ErrConflict, "vote is not open for ballots")
	ErrOutsideWindow     = common.Kind(common.ErrConflict, "vote is outside its voting window")
	ErrAlreadyVoted      = common.Kind(common.ErrConflict, "profile has already voted")
	ErrUnknownOption     = common.Kind(common.ErrInvalid, "option does not belong to this vote")
	ErrTooManyChoices    = common.Kind(common.ErrInvalid, "too many options selected")
	ErrNoChoice          = common.Kind(common.ErrInvalid, "at least one option must be selected")
	ErrDuplicateChoice   = common.Kind(common.ErrInvalid, "an option was selected twice")
	ErrInvalidTransition = common.Kind(common.ErrConflict, "invalid vote status transition")
	ErrNotDraft          = common.Kind(common.ErrConflict, "vote can only be edited while in draft")
	ErrResultsHidden     = common.Kind(common.ErrForbidden, "results are available once the vote is closed")
)

// Status is the lifecycle of a vote
type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

var transitions = map[Status][]Status{
	StatusDraft:  {StatusActive},
	StatusActive: {StatusClosed},
	StatusClosed: {},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Vote is a poll submitted to the members
type Vote struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title          string    `json:"title" gorm:"not null"`
	Description    string    `json:"description" gorm:"type:text"`
	Status         Status    `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	StartDate      time.Time `json:"start_date" gorm:"not null"`
	EndDate        time.Time `json:"end_date" gorm:"not null"`
	MaxChoices     int       `json:"max_choices" gorm:"not null;default:1"`
	Anonymous      bool      `json:"anonymous" gorm:"not null;default:false"`
	ResultsVisible bool      `json:"results_visible" gorm:"not null"`
	CreatedBy      uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Options []Option `json:"options,omitempty" gorm:"foreignKey:VoteID;constraint:OnDelete:CASCADE"`
}

// Option is one of the choices of a vote
type Option struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	VoteID   uuid.UUID `json:"vote_id" gorm:"type:uuid;not null;index"`
	Label    string    `json:"label" gorm:"not null"`
	Position int       `json:"position" gorm:"not null"`
}

// Response is one selected option of a ballot
type Response struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	VoteID    uuid.UUID `json:"vote_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_responses_ballot"`
	ProfileID uuid.UUID `json:"profile_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_responses_ballot"`
	OptionID  uuid.UUID `json:"option_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_responses_ballot"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name
func (Vote) TableName() string {
	return "votes"
}

// TableName overrides the table name
func (Option) TableName() string {
	return "vote_options"
}

// TableName overrides the table name
func (Response) TableName() string {
	return "vote_responses"
}

// BeforeCreate will set a UUID rather than numeric ID.
func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// BeforeCreate will set a UUID rather than numeric ID.
func (o *Option) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// BeforeCreate will set a UUID rather than numeric ID.
func (r *Response) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewVote creates a draft vote with options in the given order
func NewVote(title, description string, createdBy uuid.UUID, startDate, endDate time.Time, maxChoices int, labels []string) *Vote {
	now := time.Now()
	v := &Vote{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(title),
		Description:    description,
		Status:         StatusDraft,
		StartDate:      startDate,
		EndDate:        endDate,
		MaxChoices:     maxChoices,
		ResultsVisible: true,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	v.SetOptions(labels)
	return v
}

// SetOptions replaces the options with the given labels
func (v *Vote) SetOptions(labels []string) {
	v.Options = make([]Option, 0, len(labels))
	for i, label := range labels {
		v.Options = append(v.Options, Option{
			ID:       uuid.New(),
			VoteID:   v.ID,
			Label:    strings.TrimSpace(label),
			Position: i + 1,
		})
	}
}

// Validate checks if the vote data is valid
func (v *Vote) Validate() error {
	if v.Title == "" {
		return common.NewValidationError("title", "is required")
	}
	if v.CreatedBy == uuid.Nil {
		return common.NewValidationError("created_by", "is required")
	}
	if v.StartDate.IsZero() || v.EndDate.IsZero() {
		return common.NewValidationError("start_date", "start and end dates are required")
	}
	if !v.EndDate.After(v.StartDate) {
		return common.NewValidationError("end_date", "must be after start_date")
	}
	if len(v.Options) < 2 {
		return common.NewValidationError("options", "at least two options are required")
	}
	seen := make(map[string]bool, len(v.Options))
	for _, o := range v.Options {
		if o.Label == "" {
			return common.NewValidationError("options", "labels must not be empty")
		}
		key := strings.ToLower(o.Label)
		if seen[key] {
			return common.NewValidationError("options", fmt.Sprintf("duplicate label %q", o.Label))
		}
		seen[key] = true
	}
	if v.MaxChoices < 1 || v.MaxChoices > len(v.Options) {
		return common.NewValidationError("max_choices", "must be between 1 and the number of options")
	}
	if !v.Status.Valid() {
		return common.NewValidationError("status", "unknown status")
	}
	return nil
}

// CanTransitionTo checks if the vote can move to a new status
func (v *Vote) CanTransitionTo(next Status) bool {
	allowed, exists := transitions[v.Status]
	if !exists {
		return false
	}
	return slices.Contains(allowed, next)
}

// UpdateStatus updates the status if the transition is valid
func (v *Vote) UpdateStatus(next Status) error {
	if !v.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, v.Status, next)
	}
	v.Status = next
	return nil
}

// IsOpenAt reports whether ballots are accepted at t
func (v *Vote) IsOpenAt(t time.Time) bool {
	return v.Status == StatusActive && !t.Before(v.StartDate) && t.Before(v.EndDate)
}

// CheckBallot validates the selected options against the vote at time now
func (v *Vote) CheckBallot(optionIDs []uuid.UUID, now time.Time) error {
	if v.Status != StatusActive {
		return ErrNotActive
	}
	if now.Before(v.StartDate) || !now.Before(v.EndDate) {
		return ErrOutsideWindow
	}
	if len(optionIDs) == 0 {
		return ErrNoChoice
	}
	if len(optionIDs) > v.MaxChoices {
		return ErrTooManyChoices
	}
	seen := make(map[uuid.UUID]bool, len(optionIDs))
	for _, id := range optionIDs {
		if seen[id] {
			return ErrDuplicateChoice
		}
		seen[id] = true
		if !v.HasOption(id) {
			return ErrUnknownOption
		}
	}
	return nil
}

// HasOption reports whether id is one of the vote's options
func (v *Vote) HasOption(id uuid.UUID) bool {
	return slices.ContainsFunc(v.Options, func(o Option) bool { return o.ID == id })
}

// ResultsAvailableTo reports whether the actor may see the tally now
func (v *Vote) ResultsAvailableTo(actor common.Actor) bool {
	if v.CreatedBy == actor.ID || actor.IsStaff() {
		return true
	}
	return v.Status == StatusClosed || (v.Status == StatusActive && v.ResultsVisible)
}
