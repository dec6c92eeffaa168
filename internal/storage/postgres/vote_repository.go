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

	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/logger"
)

// PostgresVoteRepository implements vote.Repository using GORM
type PostgresVoteRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresVoteRepository creates a new PostgreSQL vote repository
func NewPostgresVoteRepository(db *gorm.DB) *PostgresVoteRepository {
	return &PostgresVoteRepository{
		db:  db,
		log: logger.Repository("vote"),
	}
}

func preloadOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *PostgresVoteRepository) Create(ctx context.Context, v *vote.Vote) error {
	r.log.Debug("Creating vote", "title", v.Title, "options", len(v.Options))

	// Create saves the options association in the same transaction
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		r.log.Error("Failed to create vote", "title", v.Title, "error", err)
		return fmt.Errorf("failed to create vote: %w", translate(err, vote.ErrNotFound))
	}

	r.log.Info("Vote created successfully", "id", v.ID, "title", v.Title)
	return nil
}

func (r *PostgresVoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*vote.Vote, error) {
	var v vote.Vote
	if err := r.db.WithContext(ctx).Preload("Options", preloadOptions).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, vote.ErrNotFound
		}
		r.log.Error("Failed to get vote", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &v, nil
}

func (r *PostgresVoteRepository) List(ctx context.Context, filter vote.Filter) ([]*vote.Vote, error) {
	query := r.db.WithContext(ctx).Model(&vote.Vote{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	votes := []*vote.Vote{}
	if err := query.Preload("Options", preloadOptions).Order("start_date DESC").Find(&votes).Error; err != nil {
		r.log.Error("Failed to list votes", "error", err)
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	return votes, nil
}

func (r *PostgresVoteRepository) Update(ctx context.Context, v *vote.Vote, replaceOptions bool) error {
	r.log.Debug("Updating vote", "id", v.ID, "replace_options", replaceOptions)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&vote.Vote{}).Where("id = ?", v.ID).Updates(map[string]any{
			"title":           v.Title,
			"description":     v.Description,
			"status":          v.Status,
			"start_date":      v.StartDate,
			"end_date":        v.EndDate,
			"max_choices":     v.MaxChoices,
			"anonymous":       v.Anonymous,
			"results_visible": v.ResultsVisible,
			"updated_at":      time.Now().UTC(),
		})
		if err := affected(result, vote.ErrNotFound); err != nil {
			return err
		}
		if !replaceOptions {
			return nil
		}

		if err := tx.Delete(&vote.Option{}, "vote_id = ?", v.ID).Error; err != nil {
			return err
		}
		for i := range v.Options {
			v.Options[i].VoteID = v.ID
		}
		if len(v.Options) == 0 {
			return nil
		}
		return tx.Create(&v.Options).Error
	})
	if err != nil {
		return translate(err, vote.ErrNotFound)
	}

	r.log.Info("Vote updated successfully", "id", v.ID, "status", v.Status)
	return nil
}

func (r *PostgresVoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&vote.Vote{}, "id = ?", id)
	if err := affected(result, vote.ErrNotFound); err != nil {
		return err
	}

	r.log.Info("Vote deleted successfully", "id", id)
	return nil
}

// CastBallot locks the vote row, re-validates the ballot against it and
// stores every selected option. The unique ballot index rejects a second
// ballot that races past the lock.
func (r *PostgresVoteRepository) CastBallot(ctx context.Context, voteID, profileID uuid.UUID, optionIDs []uuid.UUID) ([]*vote.Response, error) {
	r.log.Debug("Casting ballot", "vote_id", voteID, "profile_id", profileID, "choices", len(optionIDs))

	var ballot []*vote.Response
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v vote.Vote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", voteID).Error; err != nil {
			return err
		}
		if err := tx.Where("vote_id = ?", voteID).Order("position ASC").Find(&v.Options).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := v.CheckBallot(optionIDs, now); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&vote.Response{}).
			Where("vote_id = ? AND profile_id = ?", voteID, profileID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return vote.ErrAlreadyVoted
		}

		ballot = make([]*vote.Response, 0, len(optionIDs))
		for _, optionID := range optionIDs {
			ballot = append(ballot, &vote.Response{VoteID: voteID, ProfileID: profileID, OptionID: optionID, CreatedAt: now})
		}
		return tx.Create(&ballot).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, vote.ErrAlreadyVoted
		}
		r.log.Debug("Ballot refused", "vote_id", voteID, "profile_id", profileID, "error", err)
		return nil, translate(err, vote.ErrNotFound)
	}

	r.log.Info("Ballot cast", "vote_id", voteID, "profile_id", profileID, "choices", len(ballot))
	return ballot, nil
}

func (r *PostgresVoteRepository) ListResponses(ctx context.Context, voteID uuid.UUID) ([]*vote.Response, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &vote.Vote{}, voteID, vote.ErrNotFound); err != nil {
		return nil, err
	}

	responses := []*vote.Response{}
	if err := db.Where("vote_id = ?", voteID).Order("created_at ASC").Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

func (r *PostgresVoteRepository) ListBallot(ctx context.Context, voteID, profileID uuid.UUID) ([]*vote.Response, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &vote.Vote{}, voteID, vote.ErrNotFound); err != nil {
		return nil, err
	}

	ballot := []*vote.Response{}
	if err := db.Where("vote_id = ? AND profile_id = ?", voteID, profileID).Find(&ballot).Error; err != nil {
		return nil, fmt.Errorf("failed to list ballot: %w", err)
	}
	return ballot, nil
}
