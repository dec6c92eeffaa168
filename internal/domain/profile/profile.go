package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

var (
	ErrNotFound           = common.Kind(common.ErrNotFound, "profile not found")
	ErrEmailTaken         = common.Kind(common.ErrConflict, "email is already registered")
	ErrInvalidCredentials = common.Kind(common.ErrUnauthenticated, "invalid email or password")
	ErrInactive           = common.Kind(common.ErrForbidden, "profile is not active")
	ErrSessionNotFound    = common.Kind(common.ErrNotFound, "session not found")
)

// Role is the application role of a member
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleMember      Role = "member"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoordinator, RoleMember:
		return true
	}
	return false
}

// Status is the membership status of a profile
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive:
		return true
	}
	return false
}

// Profile is the application-level user record layered over the auth identity
type Profile struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	FirstName    string         `json:"first_name" gorm:"not null"`
	LastName     string         `json:"last_name"`
	Phone        string         `json:"phone"`
	Bio          string         `json:"bio" gorm:"type:text"`
	Skills       pq.StringArray `json:"skills" gorm:"type:text[]"`
	Role         Role           `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	Status       Status         `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate sets a UUID before creating the record
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewProfile creates an active member profile
func NewProfile(email, firstName, lastName string) *Profile {
	now := time.Now()
	return &Profile{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Skills:    pq.StringArray{},
		Role:      RoleMember,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FullName joins first and last name
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsActive reports whether the profile may sign in
func (p *Profile) IsActive() bool {
	return p.Status == StatusActive
}

// Actor returns the profile as an operation actor
func (p *Profile) Actor() common.Actor {
	return common.Actor{ID: p.ID, Role: string(p.Role)}
}

// SetPassword hashes and stores the password
func (p *Profile) SetPassword(password string, cost int) error {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	p.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares the password with the stored hash
func (p *Profile) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Validate checks if the profile data is valid
func (p *Profile) Validate() error {
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		return common.NewValidationError("email", "must be a valid email address")
	}
	if p.FirstName == "" {
		return common.NewValidationError("first_name", "is required")
	}
	if !p.Role.Valid() {
		return common.NewValidationError("role", "unknown role")
	}
	if !p.Status.Valid() {
		return common.NewValidationError("status", "unknown status")
	}
	return nil
}

// Session is a signed-in session referenced by the token's jti claim
type Session struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ProfileID uuid.UUID  `json:"profile_id" gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Session) TableName() string {
	return "sessions"
}

// IsValid reports whether the session can still authenticate requests
func (s *Session) IsValid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// DirectoryFilter narrows the member directory listing
type DirectoryFilter struct {
	Query  string
	Skill  string
	Role   Role
	Status Status
	Page   common.Page
}

// Repository persists profiles and sessions
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, filter DirectoryFilter) ([]*Profile, int64, error)

	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error
}
