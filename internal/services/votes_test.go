package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/vote"
)

func newVoteRequest() CreateVoteRequest {
	now := time.Now()
	return CreateVoteRequest{
		Title:      "New meeting day",
		StartDate:  now.Add(-time.Hour),
		EndDate:    now.Add(24 * time.Hour),
		MaxChoices: 1,
		Options:    []string{"Monday", "Wednesday", "Friday"},
	}
}

func optionIDs(v *vote.Vote, positions ...int) []string {
	var ids []string
	for _, pos := range positions {
		for _, o := range v.Options {
			if o.Position == pos {
				ids = append(ids, o.ID.String())
			}
		}
	}
	return ids
}

func TestVoteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)
	member := env.member(t, "ana@example.org", profile.RoleMember)

	_, err := env.services.Votes.Create(ctx, member, newVoteRequest())
	assert.ErrorIs(t, err, ErrStaffOnly)

	v, err := env.services.Votes.Create(ctx, coordinator, newVoteRequest())
	require.NoError(t, err)
	assert.Equal(t, vote.StatusDraft, v.Status)

	_, err = env.services.Votes.Get(ctx, member, v.ID)
	assert.ErrorIs(t, err, vote.ErrNotFound)
	listed, err := env.services.Votes.List(ctx, member, "")
	require.NoError(t, err)
	assert.Empty(t, listed)

	updated, err := env.services.Votes.Update(ctx, coordinator, v.ID, UpdateVoteRequest{Options: []string{"Tuesday", "Thursday"}})
	require.NoError(t, err)
	require.Len(t, updated.Options, 2)
	assert.Equal(t, "Tuesday", updated.Options[0].Label)

	_, err = env.services.Votes.Close(ctx, coordinator, v.ID)
	assert.ErrorIs(t, err, vote.ErrInvalidTransition)

	opened, err := env.services.Votes.Open(ctx, coordinator, v.ID)
	require.NoError(t, err)
	assert.Equal(t, vote.StatusActive, opened.Status)

	_, err = env.services.Votes.Update(ctx, coordinator, v.ID, UpdateVoteRequest{Title: ptr("Too late")})
	assert.ErrorIs(t, err, vote.ErrNotDraft)

	closed, err := env.services.Votes.Close(ctx, coordinator, v.ID)
	require.NoError(t, err)
	assert.Equal(t, vote.StatusClosed, closed.Status)
}

func TestCastBallot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)
	ana := env.member(t, "ana@example.org", profile.RoleMember)

	req := newVoteRequest()
	req.MaxChoices = 2
	v, err := env.services.Votes.Create(ctx, coordinator, req)
	require.NoError(t, err)

	_, err = env.services.Votes.Cast(ctx, ana, v.ID, CastRequest{OptionIDs: optionIDs(v, 1)})
	assert.ErrorIs(t, err, vote.ErrNotActive)

	_, err = env.services.Votes.Open(ctx, coordinator, v.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		options []string
		wantErr error
	}{
		{name: "no choice", options: []string{}, wantErr: vote.ErrNoChoice},
		{name: "too many", options: optionIDs(v, 1, 2, 3), wantErr: vote.ErrTooManyChoices},
		{name: "duplicate", options: optionIDs(v, 1, 1), wantErr: vote.ErrDuplicateChoice},
		{name: "foreign option", options: []string{uuid.NewString()}, wantErr: vote.ErrUnknownOption},
		{name: "not a uuid", options: []string{"monday"}, wantErr: common.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.Votes.Cast(ctx, ana, v.ID, CastRequest{OptionIDs: tt.options})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	responses, err := env.services.Votes.Cast(ctx, ana, v.ID, CastRequest{OptionIDs: optionIDs(v, 1, 3)})
	require.NoError(t, err)
	assert.Len(t, responses, 2)

	_, err = env.services.Votes.Cast(ctx, ana, v.ID, CastRequest{OptionIDs: optionIDs(v, 2)})
	assert.ErrorIs(t, err, vote.ErrAlreadyVoted)

	ballot, err := env.services.Votes.MyBallot(ctx, ana, v.ID)
	require.NoError(t, err)
	assert.Len(t, ballot, 2)
}

func TestVoteResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)
	voters := []common.Actor{
		env.member(t, "ana@example.org", profile.RoleMember),
		env.member(t, "bob@example.org", profile.RoleMember),
		env.member(t, "carla@example.org", profile.RoleMember),
	}

	req := newVoteRequest()
	req.Anonymous = true
	req.ResultsVisible = ptr(false)
	v, err := env.services.Votes.Create(ctx, coordinator, req)
	require.NoError(t, err)
	_, err = env.services.Votes.Open(ctx, coordinator, v.ID)
	require.NoError(t, err)

	for i, voter := range voters {
		choice := 1
		if i == 2 {
			choice = 3
		}
		_, err := env.services.Votes.Cast(ctx, voter, v.ID, CastRequest{OptionIDs: optionIDs(v, choice)})
		require.NoError(t, err)
	}

	_, err = env.services.Votes.Results(ctx, voters[0], v.ID)
	assert.ErrorIs(t, err, vote.ErrResultsHidden)

	results, err := env.services.Votes.Results(ctx, coordinator, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, results.TotalVoters)
	require.Len(t, results.Options, 3)
	assert.Equal(t, 2, results.Options[0].Count)
	assert.Equal(t, 0, results.Options[1].Count)
	assert.Equal(t, 1, results.Options[2].Count)
	assert.Empty(t, results.Options[0].Voters)

	_, err = env.services.Votes.Close(ctx, coordinator, v.ID)
	require.NoError(t, err)

	results, err = env.services.Votes.Results(ctx, voters[1], v.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{results.Options[0].OptionID}, results.Leading)
}
