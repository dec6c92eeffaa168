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

	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/logger"
)

// PostgresPermanenceRepository implements permanence.Repository using GORM
type PostgresPermanenceRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresPermanenceRepository creates a new PostgreSQL permanence repository
func NewPostgresPermanenceRepository(db *gorm.DB) *PostgresPermanenceRepository {
	return &PostgresPermanenceRepository{
		db:  db,
		log: logger.Repository("permanence"),
	}
}

func preloadVolunteers(db *gorm.DB) *gorm.DB {
	return db.Order("registered_at ASC")
}

func (r *PostgresPermanenceRepository) Create(ctx context.Context, p *permanence.Permanence) error {
	r.log.Debug("Creating permanence", "title", p.Title, "start_at", p.StartAt)

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		r.log.Error("Failed to create permanence", "title", p.Title, "error", err)
		return fmt.Errorf("failed to create permanence: %w", translate(err, permanence.ErrNotFound))
	}

	r.log.Info("Permanence created successfully", "id", p.ID, "title", p.Title)
	return nil
}

func (r *PostgresPermanenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*permanence.Permanence, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *PostgresPermanenceRepository) get(db *gorm.DB, id uuid.UUID) (*permanence.Permanence, error) {
	var p permanence.Permanence
	if err := db.Preload("Participants", preloadVolunteers).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, permanence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get permanence: %w", err)
	}
	return &p, nil
}

func (r *PostgresPermanenceRepository) List(ctx context.Context, filter permanence.Filter) ([]*permanence.Permanence, error) {
	query := overlapping(r.db.WithContext(ctx).Model(&permanence.Permanence{}), filter.Range, "start_at", "end_at")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProfileID != uuid.Nil {
		query = query.Where("EXISTS (SELECT 1 FROM permanence_participants pp WHERE pp.permanence_id = permanences.id AND pp.profile_id = ?)", filter.ProfileID)
	}

	permanences := []*permanence.Permanence{}
	if err := query.Preload("Participants", preloadVolunteers).Order("start_at ASC").Find(&permanences).Error; err != nil {
		r.log.Error("Failed to list permanences", "error", err)
		return nil, fmt.Errorf("failed to list permanences: %w", err)
	}

	r.log.Debug("Retrieved permanences", "count", len(permanences))
	return permanences, nil
}

// Update stores shift fields under the row lock. The capacity may not drop
// below the current registrations and the open/full status follows it.
func (r *PostgresPermanenceRepository) Update(ctx context.Context, p *permanence.Permanence) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.lock(tx, p.ID); err != nil {
			return err
		}
		count, err := countVolunteers(tx, p.ID)
		if err != nil {
			return err
		}
		if p.MaxVolunteers < count {
			return permanence.ErrCapacityBelowLoad
		}
		p.Status = p.StatusAfterCount(count)

		return tx.Model(&permanence.Permanence{}).Where("id = ?", p.ID).Updates(map[string]any{
			"title":          p.Title,
			"description":    p.Description,
			"location":       p.Location,
			"start_at":       p.StartAt,
			"end_at":         p.EndAt,
			"min_volunteers": p.MinVolunteers,
			"max_volunteers": p.MaxVolunteers,
			"status":         p.Status,
			"updated_at":     time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return translate(err, permanence.ErrNotFound)
	}

	r.log.Info("Permanence updated successfully", "id", p.ID, "status", p.Status)
	return nil
}

func (r *PostgresPermanenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&permanence.Permanence{}, "id = ?", id)
	if err := affected(result, permanence.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Permanence deleted successfully", "id", id)
	return nil
}

// lock reads the shift with SELECT ... FOR UPDATE, serializing registrations on it
func (r *PostgresPermanenceRepository) lock(tx *gorm.DB, id uuid.UUID) (*permanence.Permanence, error) {
	var p permanence.Permanence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, permanence.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func countVolunteers(tx *gorm.DB, permanenceID uuid.UUID) (int, error) {
	var count int64
	if err := tx.Model(&permanence.Participant{}).Where("permanence_id = ?", permanenceID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *PostgresPermanenceRepository) setStatus(tx *gorm.DB, p *permanence.Permanence, count int) error {
	next := p.StatusAfterCount(count)
	if next == p.Status {
		return nil
	}
	p.Status = next
	return tx.Model(&permanence.Permanence{}).Where("id = ?", p.ID).Updates(map[string]any{
		"status":     next,
		"updated_at": time.Now().UTC(),
	}).Error
}

// Register adds the volunteer inside one transaction holding the shift row lock
func (r *PostgresPermanenceRepository) Register(ctx context.Context, permanenceID, profileID uuid.UUID) (*permanence.Permanence, error) {
	r.log.Debug("Registering volunteer", "permanence_id", permanenceID, "profile_id", profileID)

	var result *permanence.Permanence
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := r.lock(tx, permanenceID)
		if err != nil {
			return err
		}
		count, err := countVolunteers(tx, permanenceID)
		if err != nil {
			return err
		}
		var registered int64
		if err := tx.Model(&permanence.Participant{}).
			Where("permanence_id = ? AND profile_id = ?", permanenceID, profileID).
			Count(&registered).Error; err != nil {
			return err
		}
		if err := p.CheckRegistration(count, registered > 0); err != nil {
			return err
		}

		part := permanence.Participant{PermanenceID: permanenceID, ProfileID: profileID, RegisteredAt: time.Now().UTC()}
		if err := tx.Create(&part).Error; err != nil {
			return err
		}
		if err := r.setStatus(tx, p, count+1); err != nil {
			return err
		}

		result, err = r.get(tx, permanenceID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, permanence.ErrAlreadyRegistered
		case errors.Is(err, gorm.ErrCheckConstraintViolated):
			return nil, permanence.ErrFull
		}
		r.log.Debug("Registration refused", "permanence_id", permanenceID, "profile_id", profileID, "error", err)
		return nil, translate(err, permanence.ErrNotFound)
	}

	r.log.Info("Volunteer registered", "permanence_id", permanenceID, "profile_id", profileID, "status", result.Status)
	return result, nil
}

func (r *PostgresPermanenceRepository) Unregister(ctx context.Context, permanenceID, profileID uuid.UUID) (*permanence.Permanence, error) {
	r.log.Debug("Unregistering volunteer", "permanence_id", permanenceID, "profile_id", profileID)

	var result *permanence.Permanence
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := r.lock(tx, permanenceID)
		if err != nil {
			return err
		}
		deleted := tx.Delete(&permanence.Participant{}, "permanence_id = ? AND profile_id = ?", permanenceID, profileID)
		if err := affected(deleted, permanence.ErrNotRegistered); err != nil {
			return err
		}
		count, err := countVolunteers(tx, permanenceID)
		if err != nil {
			return err
		}
		if err := r.setStatus(tx, p, count); err != nil {
			return err
		}

		result, err = r.get(tx, permanenceID)
		return err
	})
	if err != nil {
		return nil, translate(err, permanence.ErrNotFound)
	}

	r.log.Info("Volunteer unregistered", "permanence_id", permanenceID, "profile_id", profileID, "status", result.Status)
	return result, nil
}

func (r *PostgresPermanenceRepository) ListParticipants(ctx context.Context, permanenceID uuid.UUID) ([]*permanence.Participant, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &permanence.Permanence{}, permanenceID, permanence.ErrNotFound); err != nil {
		return nil, err
	}

	participants := []*permanence.Participant{}
	if err := db.Where("permanence_id = ?", permanenceID).Order("registered_at ASC").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to list volunteers: %w", err)
	}
	return participants, nil
}

func (r *PostgresPermanenceRepository) CountParticipants(ctx context.Context, permanenceID uuid.UUID) (int, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &permanence.Permanence{}, permanenceID, permanence.ErrNotFound); err != nil {
		return 0, err
	}
	return countVolunteers(db, permanenceID)
}
