package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/realtime"
)

type voteRepository struct {
	s *Store
}

func cloneVote(v vote.Vote) *vote.Vote {
	v.Options = slices.Clone(v.Options)
	return &v
}

func (r *voteRepository) Create(ctx context.Context, v *vote.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	for i := range v.Options {
		v.Options[i].VoteID = v.ID
		if v.Options[i].ID == uuid.Nil {
			v.Options[i].ID = uuid.New()
		}
	}

	stored := cloneVote(*v)
	r.s.votes[v.ID] = *stored
	r.s.emit("votes", realtime.ActionInsert, stored)
	return nil
}

func (r *voteRepository) GetByID(ctx context.Context, id uuid.UUID) (*vote.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.votes[id]
	if !ok {
		return nil, vote.ErrNotFound
	}
	return cloneVote(v), nil
}

func (r *voteRepository) List(ctx context.Context, filter vote.Filter) ([]*vote.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	votes := []*vote.Vote{}
	for _, v := range r.s.votes {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		votes = append(votes, cloneVote(v))
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].StartDate.After(votes[j].StartDate) })
	return votes, nil
}

func (r *voteRepository) Update(ctx context.Context, v *vote.Vote, replaceOptions bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.votes[v.ID]
	if !ok {
		return vote.ErrNotFound
	}
	if replaceOptions {
		for i := range v.Options {
			v.Options[i].VoteID = v.ID
		}
	} else {
		v.Options = slices.Clone(existing.Options)
	}
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now()

	stored := cloneVote(*v)
	r.s.votes[v.ID] = *stored
	r.s.emit("votes", realtime.ActionUpdate, stored)
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.votes[id]
	if !ok {
		return vote.ErrNotFound
	}
	delete(r.s.votes, id)
	delete(r.s.responses, id)
	r.s.emit("votes", realtime.ActionDelete, v)
	return nil
}

// CastBallot re-validates the ballot against the stored vote under the write lock
func (r *voteRepository) CastBallot(ctx context.Context, voteID, profileID uuid.UUID, optionIDs []uuid.UUID) ([]*vote.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.votes[voteID]
	if !ok {
		return nil, vote.ErrNotFound
	}
	now := time.Now()
	if err := v.CheckBallot(optionIDs, now); err != nil {
		return nil, err
	}
	for _, existing := range r.s.responses[voteID] {
		if existing.ProfileID == profileID {
			return nil, vote.ErrAlreadyVoted
		}
	}

	ballot := make([]*vote.Response, 0, len(optionIDs))
	for _, optionID := range optionIDs {
		resp := vote.Response{ID: uuid.New(), VoteID: voteID, ProfileID: profileID, OptionID: optionID, CreatedAt: now}
		r.s.responses[voteID] = append(r.s.responses[voteID], resp)
		ballot = append(ballot, &resp)
		r.s.emit("vote_responses", realtime.ActionInsert, resp)
	}
	return ballot, nil
}

func (r *voteRepository) ListResponses(ctx context.Context, voteID uuid.UUID) ([]*vote.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.votes[voteID]; !ok {
		return nil, vote.ErrNotFound
	}
	responses := make([]*vote.Response, 0, len(r.s.responses[voteID]))
	for _, resp := range r.s.responses[voteID] {
		responses = append(responses, &resp)
	}
	return responses, nil
}

func (r *voteRepository) ListBallot(ctx context.Context, voteID, profileID uuid.UUID) ([]*vote.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.votes[voteID]; !ok {
		return nil, vote.ErrNotFound
	}
	ballot := []*vote.Response{}
	for _, resp := range r.s.responses[voteID] {
		if resp.ProfileID == profileID {
			ballot = append(ballot, &resp)
		}
	}
	return ballot, nil
}
