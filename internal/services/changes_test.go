package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/realtime"
)

func TestFollowPublicTables(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	member := env.member(t, "ana@example.org", profile.RoleMember)
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)

	for _, table := range []string{"profiles", "notes", "messages", "vote_responses", "sessions", "vote_options"} {
		_, err := env.services.Changes.Follow(ctx, member, table, "", "")
		assert.ErrorIs(t, err, ErrTableNotFollowable, table)
	}
	_, err := env.services.Changes.Follow(ctx, member, "events", "", "x")
	assert.ErrorIs(t, err, common.ErrInvalid)

	sub, err := env.services.Changes.Follow(ctx, member, "permanences", "", "")
	require.NoError(t, err)

	shift, err := env.services.Permanences.Create(ctx, coordinator, newShiftRequest(1, 2))
	require.NoError(t, err)

	select {
	case change := <-sub.Changes():
		assert.Equal(t, realtime.ActionInsert, change.Action)
		assert.Equal(t, shift.ID.String(), change.Field("id"))
		_, hasDescription := change.Record["description"]
		assert.False(t, hasDescription)
	case <-time.After(time.Second):
		t.Fatal("change not delivered")
	}
}

func TestFollowableTablesByRole(t *testing.T) {
	env := newTestEnv(t)
	member := env.member(t, "ana@example.org", profile.RoleMember)
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)

	assert.NotContains(t, env.services.Changes.Tables(member), "vote_options")
	assert.Contains(t, env.services.Changes.Tables(coordinator), "vote_options")

	sub, err := env.services.Changes.Follow(context.Background(), coordinator, "vote_options", "", "")
	require.NoError(t, err)
	sub.Close()
}

func TestFollowVotesHidesDraftsFromMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	member := env.member(t, "ana@example.org", profile.RoleMember)
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)

	memberSub, err := env.services.Changes.Follow(ctx, member, "votes", "", "")
	require.NoError(t, err)
	staffSub, err := env.services.Changes.Follow(ctx, coordinator, "votes", "", "")
	require.NoError(t, err)

	draft, err := env.services.Votes.Create(ctx, coordinator, newVoteRequest())
	require.NoError(t, err)

	select {
	case change := <-staffSub.Changes():
		assert.Equal(t, string(vote.StatusDraft), change.Field("status"))
	case <-time.After(time.Second):
		t.Fatal("staff did not receive the draft")
	}

	_, err = env.services.Votes.Open(ctx, coordinator, draft.ID)
	require.NoError(t, err)

	select {
	case change := <-memberSub.Changes():
		assert.Equal(t, draft.ID.String(), change.Field("id"))
		assert.NotEqual(t, string(vote.StatusDraft), change.Field("status"))
	case <-time.After(time.Second):
		t.Fatal("opened vote not delivered")
	}
	assert.Empty(t, memberSub.Changes())
}
