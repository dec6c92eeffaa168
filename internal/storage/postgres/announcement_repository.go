package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/logger"
)

// PostgresAnnouncementRepository implements announcement.Repository using GORM
type PostgresAnnouncementRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresAnnouncementRepository creates a new PostgreSQL announcement repository
func NewPostgresAnnouncementRepository(db *gorm.DB) *PostgresAnnouncementRepository {
	return &PostgresAnnouncementRepository{
		db:  db,
		log: logger.Repository("announcement"),
	}
}

func (r *PostgresAnnouncementRepository) Create(ctx context.Context, a *announcement.Announcement) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		r.log.Error("Failed to create announcement", "title", a.Title, "error", err)
		return fmt.Errorf("failed to create announcement: %w", translate(err, announcement.ErrNotFound))
	}

	r.log.Info("Announcement created successfully", "id", a.ID, "category", a.Category)
	return nil
}

func (r *PostgresAnnouncementRepository) GetByID(ctx context.Context, id uuid.UUID) (*announcement.Announcement, error) {
	var a announcement.Announcement
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, announcement.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}
	return &a, nil
}

func (r *PostgresAnnouncementRepository) List(ctx context.Context, filter announcement.Filter) ([]*announcement.Announcement, error) {
	query := r.db.WithContext(ctx).Model(&announcement.Announcement{})
	if !filter.ActiveAt.IsZero() {
		query = query.Where("published_at <= ? AND (expires_at IS NULL OR expires_at > ?)", filter.ActiveAt, filter.ActiveAt)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	page := filter.Page.Normalize()
	result := []*announcement.Announcement{}
	if err := query.Order("pinned DESC, published_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&result).Error; err != nil {
		r.log.Error("Failed to list announcements", "error", err)
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return result, nil
}

func (r *PostgresAnnouncementRepository) Update(ctx context.Context, a *announcement.Announcement) error {
	result := r.db.WithContext(ctx).Model(&announcement.Announcement{}).Where("id = ?", a.ID).Updates(map[string]any{
		"title":        a.Title,
		"body":         a.Body,
		"category":     a.Category,
		"pinned":       a.Pinned,
		"published_at": a.PublishedAt,
		"expires_at":   a.ExpiresAt,
		"updated_at":   time.Now().UTC(),
	})
	if err := affected(result, announcement.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Announcement updated successfully", "id", a.ID)
	return nil
}

func (r *PostgresAnnouncementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&announcement.Announcement{}, "id = ?", id)
	if err := affected(result, announcement.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Announcement deleted successfully", "id", id)
	return nil
}
