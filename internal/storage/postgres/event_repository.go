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

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/logger"
)

// PostgresEventRepository implements event.Repository using GORM
type PostgresEventRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresEventRepository creates a new PostgreSQL event repository
func NewPostgresEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{
		db:  db,
		log: logger.Repository("event"),
	}
}

// overlapping restricts query to rows whose [start, end] intersects r
func overlapping(query *gorm.DB, r common.DateRange, startColumn, endColumn string) *gorm.DB {
	if !r.To.IsZero() {
		query = query.Where(startColumn+" < ?", r.To)
	}
	if !r.From.IsZero() {
		query = query.Where(endColumn+" >= ?", r.From)
	}
	return query
}

func (r *PostgresEventRepository) Create(ctx context.Context, e *event.Event) error {
	r.log.Debug("Creating event", "title", e.Title, "created_by", e.CreatedBy)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(e).Error; err != nil {
			return err
		}
		rsvp := event.Participant{
			EventID:     e.ID,
			ProfileID:   e.CreatedBy,
			Response:    event.ResponseAttending,
			RespondedAt: e.CreatedAt,
		}
		if err := tx.Create(&rsvp).Error; err != nil {
			return err
		}
		e.Participants = []event.Participant{rsvp}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to create event", "title", e.Title, "error", err)
		return fmt.Errorf("failed to create event: %w", translate(err, event.ErrNotFound))
	}

	r.log.Info("Event created successfully", "id", e.ID, "title", e.Title)
	return nil
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var e event.Event
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("responded_at ASC") }).
		First(&e, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, event.ErrNotFound
		}
		r.log.Error("Failed to get event", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *PostgresEventRepository) List(ctx context.Context, filter event.Filter) ([]*event.Event, error) {
	query := overlapping(r.db.WithContext(ctx).Model(&event.Event{}), filter.Range, "start_at", "end_at")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if !filter.IncludeCanceled {
		query = query.Where("status <> ?", event.StatusCanceled)
	}

	events := []*event.Event{}
	if err := query.
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("responded_at ASC") }).
		Order("start_at ASC").
		Find(&events).Error; err != nil {
		r.log.Error("Failed to list events", "error", err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	r.log.Debug("Retrieved events", "count", len(events))
	return events, nil
}

func (r *PostgresEventRepository) Update(ctx context.Context, e *event.Event) error {
	result := r.db.WithContext(ctx).Model(&event.Event{}).Where("id = ?", e.ID).Updates(map[string]any{
		"title":       e.Title,
		"description": e.Description,
		"location":    e.Location,
		"category":    e.Category,
		"status":      e.Status,
		"start_at":    e.StartAt,
		"end_at":      e.EndAt,
		"all_day":     e.AllDay,
		"updated_at":  time.Now().UTC(),
	})
	if err := affected(result, event.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Event updated successfully", "id", e.ID)
	return nil
}

func (r *PostgresEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&event.Event{}, "id = ?", id)
	if err := affected(result, event.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Event deleted successfully", "id", id)
	return nil
}

// SetResponse inserts or replaces the RSVP of a profile
func (r *PostgresEventRepository) SetResponse(ctx context.Context, p *event.Participant) error {
	if p.RespondedAt.IsZero() {
		p.RespondedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"response", "responded_at"}),
	}).Create(p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return event.ErrNotFound
		}
		r.log.Error("Failed to store RSVP", "event_id", p.EventID, "profile_id", p.ProfileID, "error", err)
		return fmt.Errorf("failed to store rsvp: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) RemoveResponse(ctx context.Context, eventID, profileID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&event.Participant{}, "event_id = ? AND profile_id = ?", eventID, profileID)
	return affected(result, event.ErrNotParticipant)
}

func (r *PostgresEventRepository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*event.Participant, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &event.Event{}, eventID, event.ErrNotFound); err != nil {
		return nil, err
	}

	participants := []*event.Participant{}
	if err := db.Where("event_id = ?", eventID).Order("responded_at ASC").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	return participants, nil
}

// exists returns notFound when no row of model has the given id
func exists(db *gorm.DB, model any, id uuid.UUID, notFound error) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up record: %w", err)
	}
	if count == 0 {
		return notFound
	}
	return nil
}
