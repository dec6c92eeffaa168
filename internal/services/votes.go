package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

// VoteService runs polls and tallies their ballots
type VoteService struct {
	votes vote.Repository
	log   *log.Logger
}

// NewVoteService creates a new vote service
func NewVoteService(votes vote.Repository) *VoteService {
	return &VoteService{
		votes: votes,
		log:   logger.Service("votes"),
	}
}

// CreateVoteRequest represents a request to create a draft vote
type CreateVoteRequest struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	EndDate        time.Time `json:"end_date" binding:"required"`
	MaxChoices     int       `json:"max_choices"`
	Anonymous      bool      `json:"anonymous"`
	ResultsVisible *bool     `json:"results_visible"`
	Options        []string  `json:"options" binding:"required"`
}

// UpdateVoteRequest holds the draft fields to change. Options replace the current ones.
type UpdateVoteRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	MaxChoices     *int       `json:"max_choices"`
	Anonymous      *bool      `json:"anonymous"`
	ResultsVisible *bool      `json:"results_visible"`
	Options        []string   `json:"options"`
}

// CastRequest represents a ballot
type CastRequest struct {
	OptionIDs []string `json:"option_ids" binding:"required"`
}

// Create stores a draft vote with its options. Staff only.
func (s *VoteService) Create(ctx context.Context, actor common.Actor, req CreateVoteRequest) (*vote.Vote, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	s.log.Debug("Creating vote", "title", req.Title, "options", len(req.Options))

	if err := validation.ValidateMaxLength(req.Title, 200, "title"); err != nil {
		return nil, err
	}
	if req.MaxChoices == 0 {
		req.MaxChoices = 1
	}

	v := vote.NewVote(req.Title, req.Description, actor.ID, req.StartDate, req.EndDate, req.MaxChoices, req.Options)
	v.Anonymous = req.Anonymous
	if req.ResultsVisible != nil {
		v.ResultsVisible = *req.ResultsVisible
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if err := s.votes.Create(ctx, v); err != nil {
		s.log.Error("Failed to create vote", "error", err)
		return nil, err
	}

	s.log.Info("Vote created", "vote_id", v.ID)
	return v, nil
}

// Get returns a vote with its options. Drafts are hidden from members.
func (s *VoteService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*vote.Vote, error) {
	v, err := s.votes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status == vote.StatusDraft && !actor.IsStaff() {
		return nil, vote.ErrNotFound
	}
	return v, nil
}

// List returns votes, newest first. Drafts are only listed for staff.
func (s *VoteService) List(ctx context.Context, actor common.Actor, status vote.Status) ([]*vote.Vote, error) {
	if status != "" && !status.Valid() {
		return nil, common.NewValidationError("status", "unknown status")
	}
	votes, err := s.votes.List(ctx, vote.Filter{Status: status})
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() {
		return votes, nil
	}

	visible := make([]*vote.Vote, 0, len(votes))
	for _, v := range votes {
		if v.Status != vote.StatusDraft {
			visible = append(visible, v)
		}
	}
	return visible, nil
}

// Update changes a draft vote. Staff only.
func (s *VoteService) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateVoteRequest) (*vote.Vote, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	v, err := s.votes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status != vote.StatusDraft {
		return nil, vote.ErrNotDraft
	}

	if req.Title != nil {
		if err := validation.ValidateMaxLength(*req.Title, 200, "title"); err != nil {
			return nil, err
		}
		v.Title = *req.Title
	}
	if req.Description != nil {
		v.Description = *req.Description
	}
	if req.StartDate != nil {
		v.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		v.EndDate = *req.EndDate
	}
	if req.MaxChoices != nil {
		v.MaxChoices = *req.MaxChoices
	}
	if req.Anonymous != nil {
		v.Anonymous = *req.Anonymous
	}
	if req.ResultsVisible != nil {
		v.ResultsVisible = *req.ResultsVisible
	}
	replace := req.Options != nil
	if replace {
		v.SetOptions(req.Options)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if err := s.votes.Update(ctx, v, replace); err != nil {
		return nil, err
	}
	s.log.Info("Vote updated", "vote_id", v.ID, "options_replaced", replace)
	return s.votes.GetByID(ctx, id)
}

// Open moves a draft vote to active. Staff only.
func (s *VoteService) Open(ctx context.Context, actor common.Actor, id uuid.UUID) (*vote.Vote, error) {
	return s.transition(ctx, actor, id, vote.StatusActive)
}

// Close ends an active vote. Staff only.
func (s *VoteService) Close(ctx context.Context, actor common.Actor, id uuid.UUID) (*vote.Vote, error) {
	return s.transition(ctx, actor, id, vote.StatusClosed)
}

func (s *VoteService) transition(ctx context.Context, actor common.Actor, id uuid.UUID, next vote.Status) (*vote.Vote, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	v, err := s.votes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := v.UpdateStatus(next); err != nil {
		return nil, err
	}
	if err := s.votes.Update(ctx, v, false); err != nil {
		return nil, err
	}

	s.log.Info("Vote status changed", "vote_id", id, "status", next, "by", actor.ID)
	return v, nil
}

// Delete removes a vote and its ballots. Staff only.
func (s *VoteService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.votes.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Vote deleted", "vote_id", id, "by", actor.ID)
	return nil
}

// Cast stores the actor's ballot
func (s *VoteService) Cast(ctx context.Context, actor common.Actor, id uuid.UUID, req CastRequest) ([]*vote.Response, error) {
	optionIDs, err := validation.ParseUUIDs(req.OptionIDs, "option_ids")
	if err != nil {
		return nil, err
	}
	s.log.Debug("Casting ballot", "vote_id", id, "profile_id", actor.ID, "choices", len(optionIDs))

	responses, err := s.votes.CastBallot(ctx, id, actor.ID, optionIDs)
	if err != nil {
		s.log.Warn("Ballot rejected", "vote_id", id, "profile_id", actor.ID, "error", err)
		return nil, err
	}

	s.log.Info("Ballot cast", "vote_id", id, "profile_id", actor.ID)
	return responses, nil
}

// Results tallies the ballots of a vote when the actor may see them
func (s *VoteService) Results(ctx context.Context, actor common.Actor, id uuid.UUID) (*vote.Results, error) {
	v, err := s.votes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.ResultsAvailableTo(actor) {
		return nil, vote.ErrResultsHidden
	}

	responses, err := s.votes.ListResponses(ctx, id)
	if err != nil {
		return nil, err
	}
	return vote.Tally(v, responses), nil
}

// MyBallot returns the option ids chosen by the actor. It is empty before voting.
func (s *VoteService) MyBallot(ctx context.Context, actor common.Actor, id uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.votes.GetByID(ctx, id); err != nil {
		return nil, err
	}
	responses, err := s.votes.ListBallot(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.OptionID)
	}
	return ids, nil
}
