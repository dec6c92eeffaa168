package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/realtime"
)

func newShift(t *testing.T, s *Store, maxVolunteers int) *permanence.Permanence {
	t.Helper()
	start := time.Now().Add(24 * time.Hour)
	p := permanence.NewPermanence("Front desk", start, start.Add(2*time.Hour), 1, maxVolunteers, uuid.New())
	require.NoError(t, s.Permanences().Create(context.Background(), p))
	return p
}

func TestRegisterNeverExceedsCapacity(t *testing.T) {
	s := New(nil)
	shift := newShift(t, s, 3)
	ctx := context.Background()

	const volunteers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for i := 0; i < volunteers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Permanences().Register(ctx, shift.ID, uuid.New())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, permanence.ErrFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, volunteers-3, full)

	stored, err := s.Permanences().GetByID(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, permanence.StatusFull, stored.Status)
	assert.Len(t, stored.Participants, 3)
}

func TestRegisterAndUnregister(t *testing.T) {
	s := New(nil)
	shift := newShift(t, s, 1)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	p, err := s.Permanences().Register(ctx, shift.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, permanence.StatusFull, p.Status)

	_, err = s.Permanences().Register(ctx, shift.ID, alice)
	assert.ErrorIs(t, err, permanence.ErrAlreadyRegistered)
	_, err = s.Permanences().Register(ctx, shift.ID, bob)
	assert.ErrorIs(t, err, permanence.ErrFull)
	_, err = s.Permanences().Unregister(ctx, shift.ID, bob)
	assert.ErrorIs(t, err, permanence.ErrNotRegistered)

	p, err = s.Permanences().Unregister(ctx, shift.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, permanence.StatusOpen, p.Status)
	assert.Empty(t, p.Participants)

	count, err := s.Permanences().CountParticipants(ctx, shift.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdateRejectsCapacityBelowLoad(t *testing.T) {
	s := New(nil)
	shift := newShift(t, s, 3)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := s.Permanences().Register(ctx, shift.ID, uuid.New())
		require.NoError(t, err)
	}

	stored, err := s.Permanences().GetByID(ctx, shift.ID)
	require.NoError(t, err)
	stored.MaxVolunteers = 1
	assert.ErrorIs(t, s.Permanences().Update(ctx, stored), permanence.ErrCapacityBelowLoad)

	stored.MaxVolunteers = 2
	require.NoError(t, s.Permanences().Update(ctx, stored))
	assert.Equal(t, permanence.StatusFull, stored.Status)
}

func TestCanceledContext(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Permanences().Register(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Health(ctx), context.Canceled)
}

func TestEventCreateStoresCreatorRSVP(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	creator := uuid.New()
	start := time.Now()
	e := event.NewEvent("Assembly", "", event.CategoryMeeting, creator, start, start.Add(time.Hour))

	require.NoError(t, s.Events().Create(ctx, e))

	participants, err := s.Events().ListParticipants(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, creator, participants[0].ProfileID)
	assert.Equal(t, event.ResponseAttending, participants[0].Response)
}

func TestCastBallotOncePerVoter(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	start := time.Now().Add(-time.Hour)
	v := vote.NewVote("Paint color", "", uuid.New(), start, start.Add(48*time.Hour), 1, []string{"blue", "green"})
	v.Status = vote.StatusActive
	require.NoError(t, s.Votes().Create(ctx, v))
	voter := uuid.New()

	ballot, err := s.Votes().CastBallot(ctx, v.ID, voter, []uuid.UUID{v.Options[0].ID})
	require.NoError(t, err)
	require.Len(t, ballot, 1)

	_, err = s.Votes().CastBallot(ctx, v.ID, voter, []uuid.UUID{v.Options[1].ID})
	assert.ErrorIs(t, err, vote.ErrAlreadyVoted)

	responses, err := s.Votes().ListResponses(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, responses, 1)
}

func TestProfileEmailUnique(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	require.NoError(t, s.Profiles().Create(ctx, profile.NewProfile("ana@example.org", "Ana", "Diaz")))
	err := s.Profiles().Create(ctx, profile.NewProfile("ANA@example.org", "Ana", "Again"))
	assert.ErrorIs(t, err, profile.ErrEmailTaken)

	found, err := s.Profiles().GetByEmail(ctx, " Ana@Example.org")
	require.NoError(t, err)
	assert.Equal(t, "Diaz", found.LastName)
}

func TestProjectOwnerCannotBeRemoved(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	owner := uuid.New()
	p := project.NewProject("Garden", "", owner)
	require.NoError(t, s.Projects().Create(ctx, p))

	assert.ErrorIs(t, s.Projects().RemoveMember(ctx, p.ID, owner), project.ErrOwnerRemoval)

	member := uuid.New()
	require.NoError(t, s.Projects().AddMember(ctx, &project.Member{ProjectID: p.ID, ProfileID: member, Role: project.RoleMember}))
	assert.ErrorIs(t, s.Projects().AddMember(ctx, &project.Member{ProjectID: p.ID, ProfileID: member, Role: project.RoleMember}), project.ErrAlreadyMember)

	mine, err := s.Projects().ListForMember(ctx, member)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Members, 2)
}

func TestMessagingReadMarkers(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	c := message.NewConversation("", alice, []uuid.UUID{bob})
	require.NoError(t, s.Messages().CreateConversation(ctx, c))

	direct, err := s.Messages().FindDirect(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, c.ID, direct.ID)

	first := message.NewMessage(c.ID, alice, "hello")
	first.Attachments = []message.Attachment{*message.NewAttachment(c.ID, first.ID, "plan.pdf", "application/pdf", 128)}
	require.NoError(t, s.Messages().SendMessage(ctx, first))
	second := message.NewMessage(c.ID, alice, "are you there?")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, s.Messages().SendMessage(ctx, second))

	counts, err := s.Messages().UnreadCounts(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[c.ID])

	counts, err = s.Messages().UnreadCounts(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[c.ID])

	require.NoError(t, s.Messages().MarkRead(ctx, c.ID, bob, first.CreatedAt))
	counts, err = s.Messages().UnreadCounts(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[c.ID])

	page, err := s.Messages().ListMessages(ctx, c.ID, message.PageQuery{Before: second.CreatedAt, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
	assert.Len(t, page[0].Attachments, 1)

	assert.ErrorIs(t, s.Messages().SendMessage(ctx, message.NewMessage(c.ID, uuid.New(), "intruder")), message.ErrNotParticipant)
}

func TestWritesArePublished(t *testing.T) {
	hub := realtime.NewHub(8)
	s := New(hub)
	sub := hub.Subscribe(context.Background(), realtime.Filter{Table: "messages", Actions: []realtime.Action{realtime.ActionInsert}})
	defer sub.Close()

	alice, bob := uuid.New(), uuid.New()
	c := message.NewConversation("", alice, []uuid.UUID{bob})
	require.NoError(t, s.Messages().CreateConversation(context.Background(), c))
	m := message.NewMessage(c.ID, alice, "secret plans")
	require.NoError(t, s.Messages().SendMessage(context.Background(), m))

	select {
	case ch := <-sub.Changes():
		assert.Equal(t, m.ID.String(), ch.Field("id"))
		assert.Equal(t, c.ID.String(), ch.Field("conversation_id"))
		assert.NotContains(t, ch.Record, "content")
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}
}
