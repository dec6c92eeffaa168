package announcement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

var (
	ErrNotFound = common.Kind(common.ErrNotFound, "announcement not found")
	ErrNotStaff = common.Kind(common.ErrForbidden, "only coordinators and admins can publish announcements")
)

// Category classifies announcements
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryUrgent  Category = "urgent"
	CategoryEvent   Category = "event"
	CategoryInfo    Category = "info"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryUrgent, CategoryEvent, CategoryInfo:
		return true
	}
	return false
}

// Announcement is a message published to all members
type Announcement struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string     `json:"title" gorm:"not null"`
	Body        string     `json:"body" gorm:"type:text;not null"`
	Category    Category   `json:"category" gorm:"type:varchar(20);not null;default:'general'"`
	Pinned      bool       `json:"pinned" gorm:"not null;default:false"`
	PublishedAt time.Time  `json:"published_at" gorm:"not null;index"`
	ExpiresAt   *time.Time `json:"expires_at"`
	AuthorID    uuid.UUID  `json:"author_id" gorm:"type:uuid;not null"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name
func (Announcement) TableName() string {
	return "announcements"
}

// BeforeCreate sets a UUID before creating the record
func (a *Announcement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NewAnnouncement creates an announcement published now
func NewAnnouncement(title, body string, category Category, authorID uuid.UUID) *Announcement {
	now := time.Now()
	return &Announcement{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Body:        body,
		Category:    category,
		PublishedAt: now,
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks if the announcement data is valid
func (a *Announcement) Validate() error {
	if a.Title == "" {
		return common.NewValidationError("title", "is required")
	}
	if strings.TrimSpace(a.Body) == "" {
		return common.NewValidationError("body", "is required")
	}
	if !a.Category.Valid() {
		return common.NewValidationError("category", "unknown category")
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(a.PublishedAt) {
		return common.NewValidationError("expires_at", "must be after published_at")
	}
	return nil
}

// IsActiveAt reports whether the announcement is visible at t
func (a *Announcement) IsActiveAt(t time.Time) bool {
	if t.Before(a.PublishedAt) {
		return false
	}
	return a.ExpiresAt == nil || t.Before(*a.ExpiresAt)
}

// Filter narrows announcement listings
type Filter struct {
	ActiveAt time.Time
	Category Category
	Page     common.Page
}

// Repository persists announcements. List orders pinned first, then newest.
type Repository interface {
	Create(ctx context.Context, a *Announcement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Announcement, error)
	List(ctx context.Context, filter Filter) ([]*Announcement, error)
	Update(ctx context.Context, a *Announcement) error
	Delete(ctx context.Context, id uuid.UUID) error
}
