package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/domain/profile"
)

func newEventRequest(start time.Time) CreateEventRequest {
	return CreateEventRequest{
		Title:    "General assembly",
		Location: "Main hall",
		Category: event.CategoryMeeting,
		StartAt:  start,
		EndAt:    start.Add(2 * time.Hour),
	}
}

func TestCreateEventAddsCreatorRSVP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.member(t, "ana@example.org", profile.RoleMember)

	e, err := env.services.Events.Create(ctx, actor, newEventRequest(time.Now().Add(48*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, event.StatusScheduled, e.Status)

	participants, err := env.services.Events.Participants(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, actor.ID, participants[0].ProfileID)
	assert.Equal(t, event.ResponseAttending, participants[0].Response)
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)
	actor := env.member(t, "ana@example.org", profile.RoleMember)
	start := time.Now()

	tests := []struct {
		name   string
		mutate func(*CreateEventRequest)
	}{
		{name: "end before start", mutate: func(r *CreateEventRequest) { r.EndAt = r.StartAt.Add(-time.Hour) }},
		{name: "unknown category", mutate: func(r *CreateEventRequest) { r.Category = "party" }},
		{name: "blank title", mutate: func(r *CreateEventRequest) { r.Title = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newEventRequest(start)
			tt.mutate(&req)
			_, err := env.services.Events.Create(context.Background(), actor, req)
			assert.ErrorIs(t, err, common.ErrInvalid)
		})
	}
}

func TestEventEditPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.member(t, "ana@example.org", profile.RoleMember)
	other := env.member(t, "bob@example.org", profile.RoleMember)
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)

	e, err := env.services.Events.Create(ctx, creator, newEventRequest(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = env.services.Events.Update(ctx, other, e.ID, UpdateEventRequest{Title: ptr("Hijacked")})
	assert.ErrorIs(t, err, event.ErrNotAllowedToEdit)

	updated, err := env.services.Events.Update(ctx, coordinator, e.ID, UpdateEventRequest{Location: ptr("Garden")})
	require.NoError(t, err)
	assert.Equal(t, "Garden", updated.Location)

	_, err = env.services.Events.Cancel(ctx, creator, e.ID)
	require.NoError(t, err)

	_, err = env.services.Events.Update(ctx, creator, e.ID, UpdateEventRequest{Title: ptr("Again")})
	assert.ErrorIs(t, err, event.ErrCanceled)

	_, err = env.services.Events.RSVP(ctx, other, e.ID, RSVPRequest{Response: event.ResponseMaybe})
	assert.ErrorIs(t, err, event.ErrCanceled)

	assert.ErrorIs(t, env.services.Events.Delete(ctx, other, e.ID), event.ErrNotAllowedToEdit)
	require.NoError(t, env.services.Events.Delete(ctx, creator, e.ID))

	_, err = env.services.Events.Get(ctx, e.ID)
	assert.ErrorIs(t, err, event.ErrNotFound)
}

func TestRSVP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.member(t, "ana@example.org", profile.RoleMember)
	guest := env.member(t, "bob@example.org", profile.RoleMember)

	e, err := env.services.Events.Create(ctx, creator, newEventRequest(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = env.services.Events.RSVP(ctx, guest, e.ID, RSVPRequest{Response: "sure"})
	assert.ErrorIs(t, err, event.ErrInvalidRSVP)

	_, err = env.services.Events.RSVP(ctx, guest, e.ID, RSVPRequest{Response: event.ResponseMaybe})
	require.NoError(t, err)
	_, err = env.services.Events.RSVP(ctx, guest, e.ID, RSVPRequest{Response: event.ResponseDeclined})
	require.NoError(t, err)

	participants, err := env.services.Events.Participants(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, participants, 2)

	require.NoError(t, env.services.Events.RemoveRSVP(ctx, guest, e.ID))
	assert.ErrorIs(t, env.services.Events.RemoveRSVP(ctx, guest, e.ID), event.ErrNotParticipant)
}

func TestListEventsByRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.member(t, "ana@example.org", profile.RoleMember)
	day := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := range 3 {
		_, err := env.services.Events.Create(ctx, actor, newEventRequest(day.AddDate(0, 0, i*7)))
		require.NoError(t, err)
	}

	events, err := env.services.Events.List(ctx, event.Filter{Range: common.DateRange{From: day, To: day.AddDate(0, 0, 8)}})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = env.services.Events.List(ctx, event.Filter{Range: common.DateRange{From: day, To: day.Add(-time.Hour)}})
	assert.ErrorIs(t, err, common.ErrInvalid)
}
