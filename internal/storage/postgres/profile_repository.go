package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/logger"
)

// PostgresProfileRepository implements profile.Repository using GORM
type PostgresProfileRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresProfileRepository creates a new PostgreSQL profile repository
func NewPostgresProfileRepository(db *gorm.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{
		db:  db,
		log: logger.Repository("profile"),
	}
}

func (r *PostgresProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	r.log.Debug("Creating profile", "email", p.Email)

	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return profile.ErrEmailTaken
		}
		r.log.Error("Failed to create profile", "email", p.Email, "error", err)
		return fmt.Errorf("failed to create profile: %w", translate(err, profile.ErrNotFound))
	}

	r.log.Info("Profile created successfully", "id", p.ID, "email", p.Email)
	return nil
}

func (r *PostgresProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	var p profile.Profile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("Profile not found", "id", id)
			return nil, profile.ErrNotFound
		}
		r.log.Error("Failed to get profile by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	email = profile.NormalizeEmail(email)
	if email == "" {
		return nil, profile.ErrNotFound
	}

	var p profile.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profile.ErrNotFound
		}
		r.log.Error("Failed to get profile by email", "email", email, "error", err)
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}
	return &p, nil
}

func (r *PostgresProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	r.log.Debug("Updating profile", "id", p.ID)

	result := r.db.WithContext(ctx).Model(&profile.Profile{}).Where("id = ?", p.ID).Updates(map[string]any{
		"email":         p.Email,
		"password_hash": p.PasswordHash,
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"phone":         p.Phone,
		"bio":           p.Bio,
		"skills":        p.Skills,
		"role":          p.Role,
		"status":        p.Status,
		"updated_at":    time.Now().UTC(),
	})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return profile.ErrEmailTaken
	}
	if err := affected(result, profile.ErrNotFound); err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			r.log.Error("Failed to update profile", "id", p.ID, "error", err)
		}
		return err
	}

	r.log.Info("Profile updated successfully", "id", p.ID)
	return nil
}

// List searches the directory by name, email and skill, ordered by last then first name
func (r *PostgresProfileRepository) List(ctx context.Context, filter profile.DirectoryFilter) ([]*profile.Profile, int64, error) {
	query := r.db.WithContext(ctx).Model(&profile.Profile{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + escapeLike(q) + "%"
		query = query.Where("lower(first_name || ' ' || last_name || ' ' || email) LIKE ?", like)
	}
	if skill := strings.ToLower(strings.TrimSpace(filter.Skill)); skill != "" {
		query = query.Where("EXISTS (SELECT 1 FROM unnest(skills) AS s WHERE lower(s) = ?)", skill)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count profiles", "error", err)
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	page := filter.Page.Normalize()
	var profiles []*profile.Profile
	if err := query.Order("last_name ASC, first_name ASC, id ASC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&profiles).Error; err != nil {
		r.log.Error("Failed to list profiles", "error", err)
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	r.log.Debug("Retrieved profiles", "count", len(profiles), "total", total)
	return profiles, total, nil
}

func (r *PostgresProfileRepository) CreateSession(ctx context.Context, s *profile.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return profile.ErrNotFound
		}
		r.log.Error("Failed to create session", "profile_id", s.ProfileID, "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *PostgresProfileRepository) GetSession(ctx context.Context, id uuid.UUID) (*profile.Session, error) {
	var s profile.Session
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profile.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// RevokeSession marks the session revoked; revoking twice keeps the first timestamp
func (r *PostgresProfileRepository) RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&profile.Session{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if count == 0 {
		return profile.ErrSessionNotFound
	}

	if err := db.Model(&profile.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error; err != nil {
		r.log.Error("Failed to revoke session", "id", id, "error", err)
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	r.log.Info("Session revoked", "id", id)
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
