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

	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/logger"
)

// PostgresNoteRepository implements note.Repository using GORM
type PostgresNoteRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresNoteRepository creates a new PostgreSQL note repository
func NewPostgresNoteRepository(db *gorm.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{
		db:  db,
		log: logger.Repository("note"),
	}
}

func (r *PostgresNoteRepository) Create(ctx context.Context, n *note.Note) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		r.log.Error("Failed to create note", "author_id", n.AuthorID, "error", err)
		return fmt.Errorf("failed to create note: %w", translate(err, note.ErrNotFound))
	}

	r.log.Info("Note created successfully", "id", n.ID, "author_id", n.AuthorID)
	return nil
}

func (r *PostgresNoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*note.Note, error) {
	var n note.Note
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, note.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &n, nil
}

// List returns pinned notes first, then the most recently edited
func (r *PostgresNoteRepository) List(ctx context.Context, filter note.Filter) ([]*note.Note, error) {
	query := r.db.WithContext(ctx).Model(&note.Note{})
	if filter.Viewer != uuid.Nil {
		query = query.Where("(visibility = ? OR author_id = ?)", note.VisibilityShared, filter.Viewer)
	}
	if filter.AuthorID != uuid.Nil {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.ProjectID != uuid.Nil {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where("? = ANY(tags)", tag)
	}

	page := filter.Page.Normalize()
	notes := []*note.Note{}
	if err := query.Order("pinned DESC, updated_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&notes).Error; err != nil {
		r.log.Error("Failed to list notes", "error", err)
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (r *PostgresNoteRepository) Update(ctx context.Context, n *note.Note) error {
	result := r.db.WithContext(ctx).Model(&note.Note{}).Where("id = ?", n.ID).Updates(map[string]any{
		"title":      n.Title,
		"content":    n.Content,
		"project_id": n.ProjectID,
		"tags":       n.Tags,
		"pinned":     n.Pinned,
		"visibility": n.Visibility,
		"updated_at": time.Now().UTC(),
	})
	if err := affected(result, note.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Note updated successfully", "id", n.ID)
	return nil
}

func (r *PostgresNoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&note.Note{}, "id = ?", id)
	if err := affected(result, note.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Note deleted successfully", "id", id)
	return nil
}
