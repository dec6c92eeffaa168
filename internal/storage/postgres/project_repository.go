package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/logger"
)

// PostgresProjectRepository implements project.Repository using GORM
type PostgresProjectRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresProjectRepository creates a new PostgreSQL project repository
func NewPostgresProjectRepository(db *gorm.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{
		db:  db,
		log: logger.Repository("project"),
	}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Order("joined_at ASC")
}

func (r *PostgresProjectRepository) Create(ctx context.Context, p *project.Project) error {
	r.log.Debug("Creating project", "name", p.Name, "owner_id", p.OwnerID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		owner := project.Member{ProjectID: p.ID, ProfileID: p.OwnerID, Role: project.RoleOwner, JoinedAt: p.CreatedAt}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		p.Members = []project.Member{owner}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to create project", "name", p.Name, "error", err)
		return fmt.Errorf("failed to create project: %w", translate(err, project.ErrNotFound))
	}

	r.log.Info("Project created successfully", "id", p.ID, "name", p.Name)
	return nil
}

func (r *PostgresProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	var p project.Project
	if err := r.db.WithContext(ctx).Preload("Members", preloadMembers).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrNotFound
		}
		r.log.Error("Failed to get project", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

func (r *PostgresProjectRepository) List(ctx context.Context, status project.Status) ([]*project.Project, error) {
	query := r.db.WithContext(ctx).Model(&project.Project{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	projects := []*project.Project{}
	if err := query.Preload("Members", preloadMembers).Order("created_at DESC").Find(&projects).Error; err != nil {
		r.log.Error("Failed to list projects", "error", err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (r *PostgresProjectRepository) ListForMember(ctx context.Context, profileID uuid.UUID) ([]*project.Project, error) {
	projects := []*project.Project{}
	err := r.db.WithContext(ctx).
		Where("EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = projects.id AND pm.profile_id = ?)", profileID).
		Preload("Members", preloadMembers).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		r.log.Error("Failed to list projects for member", "profile_id", profileID, "error", err)
		return nil, fmt.Errorf("failed to list projects for member: %w", err)
	}
	return projects, nil
}

func (r *PostgresProjectRepository) Update(ctx context.Context, p *project.Project) error {
	result := r.db.WithContext(ctx).Model(&project.Project{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"status":      p.Status,
		"start_date":  p.StartDate,
		"end_date":    p.EndDate,
		"updated_at":  time.Now().UTC(),
	})
	if err := affected(result, project.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Project updated successfully", "id", p.ID, "status", p.Status)
	return nil
}

// Delete removes the project; the notes foreign key detaches its notes
func (r *PostgresProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&project.Project{}, "id = ?", id)
	if err := affected(result, project.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Project deleted successfully", "id", id)
	return nil
}

func (r *PostgresProjectRepository) AddMember(ctx context.Context, m *project.Member) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return project.ErrAlreadyMember
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return project.ErrNotFound
		}
		r.log.Error("Failed to add member", "project_id", m.ProjectID, "profile_id", m.ProfileID, "error", err)
		return fmt.Errorf("failed to add member: %w", err)
	}

	r.log.Info("Member added", "project_id", m.ProjectID, "profile_id", m.ProfileID)
	return nil
}

func (r *PostgresProjectRepository) RemoveMember(ctx context.Context, projectID, profileID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p project.Project
		if err := tx.Select("id", "owner_id").First(&p, "id = ?", projectID).Error; err != nil {
			return err
		}
		if p.OwnerID == profileID {
			return project.ErrOwnerRemoval
		}
		result := tx.Delete(&project.Member{}, "project_id = ? AND profile_id = ?", projectID, profileID)
		return affected(result, project.ErrMemberNotFound)
	})
	if err != nil {
		return translate(err, project.ErrNotFound)
	}

	r.log.Info("Member removed", "project_id", projectID, "profile_id", profileID)
	return nil
}

func (r *PostgresProjectRepository) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*project.Member, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &project.Project{}, projectID, project.ErrNotFound); err != nil {
		return nil, err
	}

	members := []*project.Member{}
	if err := db.Where("project_id = ?", projectID).Order("joined_at ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
