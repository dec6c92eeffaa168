package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Content        string    `json:"content"`
	Count          int       `json:"count"`
	Tags           []string  `json:"tags"`
	Items          []struct {
		Name string `json:"name"`
	} `json:"items"`
}

func TestNewChangeRedactsAndFlattens(t *testing.T) {
	r := row{ID: uuid.New(), ConversationID: uuid.New(), Content: "secret", Count: 3, Tags: []string{"a"}}
	r.Items = append(r.Items, struct {
		Name string `json:"name"`
	}{Name: "x"})

	c, err := NewChange("messages", ActionInsert, r)
	require.NoError(t, err)

	assert.Equal(t, r.ID.String(), c.Field("id"))
	assert.Equal(t, "3", c.Field("count"))
	assert.Empty(t, c.Field("content"))
	assert.NotContains(t, c.Record, "content")
	assert.NotContains(t, c.Record, "items")
	assert.Contains(t, c.Record, "tags")
}

func TestDecode(t *testing.T) {
	c, err := Decode(`{"table":"messages","action":"INSERT","record":{"id":"42","sender_id":"s"}}`)
	require.NoError(t, err)
	assert.Equal(t, "messages", c.Table)
	assert.Equal(t, ActionInsert, c.Action)
	assert.Equal(t, "s", c.Field("sender_id"))
	assert.False(t, c.OccurredAt.IsZero())

	_, err = Decode(`{"record":{}}`)
	assert.Error(t, err)
	_, err = Decode(`not json`)
	assert.Error(t, err)
}

func TestFilterMatches(t *testing.T) {
	c := Change{Table: "messages", Action: ActionInsert, Record: map[string]any{"conversation_id": "c1"}}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty", filter: Filter{}, want: true},
		{name: "table", filter: Filter{Table: "messages"}, want: true},
		{name: "other table", filter: Filter{Table: "votes"}, want: false},
		{name: "action", filter: Filter{Table: "messages", Actions: []Action{ActionInsert}}, want: true},
		{name: "other action", filter: Filter{Actions: []Action{ActionDelete}}, want: false},
		{name: "column", filter: Filter{Column: "conversation_id", Value: "c1"}, want: true},
		{name: "column mismatch", filter: Filter{Column: "conversation_id", Value: "c2"}, want: false},
		{name: "excepted value", filter: Filter{Except: []Condition{{Column: "conversation_id", Value: "c1"}}}, want: false},
		{name: "other excepted value", filter: Filter{Except: []Condition{{Column: "conversation_id", Value: "c2"}}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(c))
		})
	}
}

func TestHubDeliversMatchingChanges(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(context.Background(), Filter{Table: "votes"})
	defer sub.Close()

	hub.Publish(Change{Table: "profiles", Action: ActionUpdate})
	hub.Publish(Change{Table: "votes", Action: ActionInsert})

	select {
	case c := <-sub.Changes():
		assert.Equal(t, "votes", c.Table)
	case <-time.After(time.Second):
		t.Fatal("change not delivered")
	}
	assert.Empty(t, sub.Changes())
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1)
	slow := hub.Subscribe(context.Background(), Filter{})
	defer slow.Close()

	for i := 0; i < 5; i++ {
		hub.Publish(Change{Table: "notes", Action: ActionInsert})
	}

	assert.Len(t, slow.Changes(), 1)
	assert.Equal(t, int64(4), slow.Dropped())
}

func TestSubscriptionClosedByContext(t *testing.T) {
	hub := NewHub(1)
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, Filter{})
	require.Equal(t, 1, hub.Subscribers())

	cancel()

	select {
	case _, ok := <-sub.Changes():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Equal(t, 0, hub.Subscribers())
	sub.Close()
}

func TestHubCloseRejectsNewSubscriptions(t *testing.T) {
	hub := NewHub(1)
	first := hub.Subscribe(context.Background(), Filter{})
	hub.Close()

	_, ok := <-first.Changes()
	assert.False(t, ok)

	late := hub.Subscribe(context.Background(), Filter{})
	_, ok = <-late.Changes()
	assert.False(t, ok)
	late.Close()
	first.Close()
}

func TestConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub(2)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		sub := hub.Subscribe(context.Background(), Filter{})
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(Change{Table: "events", Action: ActionUpdate})
			}
		}()
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Subscribers())
}

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) Publish(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func TestListenerForwardsValidPayloads(t *testing.T) {
	rec := &recorder{}
	l := NewListener("", time.Second, time.Minute, rec)
	assert.Equal(t, Channel, l.channel)

	l.handle(`{"table":"permanences","action":"UPDATE","record":{"id":"p1","status":"full"}}`)
	l.handle(`{broken`)

	require.Len(t, rec.changes, 1)
	assert.Equal(t, "full", rec.changes[0].Field("status"))
}
