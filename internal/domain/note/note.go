package note

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

var (
	ErrNotFound  = common.Kind(common.ErrNotFound, "note not found")
	ErrNotAuthor = common.Kind(common.ErrForbidden, "only the author can change this note")
)

// Visibility controls who can read a note
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
)

// Note is a free-form memo, optionally attached to a project
type Note struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title      string         `json:"title" gorm:"not null"`
	Content    string         `json:"content" gorm:"type:text"`
	AuthorID   uuid.UUID      `json:"author_id" gorm:"type:uuid;not null;index"`
	ProjectID  *uuid.UUID     `json:"project_id" gorm:"type:uuid;index"`
	Tags       pq.StringArray `json:"tags" gorm:"type:text[]"`
	Pinned     bool           `json:"pinned" gorm:"not null;default:false"`
	Visibility Visibility     `json:"visibility" gorm:"type:varchar(20);not null;default:'private'"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name
func (Note) TableName() string {
	return "notes"
}

// BeforeCreate sets a UUID before creating the record
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NewNote creates a private note
func NewNote(title, content string, authorID uuid.UUID, tags []string) *Note {
	now := time.Now()
	return &Note{
		ID:         uuid.New(),
		Title:      strings.TrimSpace(title),
		Content:    content,
		AuthorID:   authorID,
		Tags:       NormalizeTags(tags),
		Visibility: VisibilityPrivate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NormalizeTags lower-cases, trims and dedups tags keeping their order
func NormalizeTags(tags []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// Validate checks if the note data is valid
func (n *Note) Validate() error {
	if n.Title == "" {
		return common.NewValidationError("title", "is required")
	}
	if n.AuthorID == uuid.Nil {
		return common.NewValidationError("author_id", "is required")
	}
	switch n.Visibility {
	case VisibilityPrivate, VisibilityShared:
	default:
		return common.NewValidationError("visibility", "must be private or shared")
	}
	return nil
}

// VisibleTo reports whether the profile may read the note
func (n *Note) VisibleTo(profileID uuid.UUID) bool {
	return n.Visibility == VisibilityShared || n.AuthorID == profileID
}

// HasTag reports whether the note carries the tag
func (n *Note) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Filter narrows note listings. Viewer restricts results to notes visible to that profile.
type Filter struct {
	Viewer    uuid.UUID
	AuthorID  uuid.UUID
	ProjectID uuid.UUID
	Tag       string
	Page      common.Page
}

// Repository persists notes
type Repository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	List(ctx context.Context, filter Filter) ([]*Note, error)
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, id uuid.UUID) error
}
