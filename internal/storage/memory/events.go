package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/realtime"
)

type eventRepository struct {
	s *Store
}

// withParticipants returns a copy of e with its RSVPs. Callers hold a read lock.
func (r *eventRepository) withParticipants(e event.Event) *event.Event {
	e.Participants = nil
	for _, p := range r.s.eventParticipants[e.ID] {
		e.Participants = append(e.Participants, p)
	}
	sort.Slice(e.Participants, func(i, j int) bool {
		return e.Participants[i].RespondedAt.Before(e.Participants[j].RespondedAt)
	})
	return &e
}

func (r *eventRepository) Create(ctx context.Context, e *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now

	stored := *e
	stored.Participants = nil
	r.s.events[e.ID] = stored

	rsvp := event.Participant{EventID: e.ID, ProfileID: e.CreatedBy, Response: event.ResponseAttending, RespondedAt: now}
	r.s.eventParticipants[e.ID] = map[uuid.UUID]event.Participant{e.CreatedBy: rsvp}
	e.Participants = []event.Participant{rsvp}

	r.s.emit("events", realtime.ActionInsert, stored)
	r.s.emit("event_participants", realtime.ActionInsert, rsvp)
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, event.ErrNotFound
	}
	return r.withParticipants(e), nil
}

func (r *eventRepository) List(ctx context.Context, filter event.Filter) ([]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	events := []*event.Event{}
	for _, e := range r.s.events {
		if !filter.Range.Overlaps(e.StartAt, e.EndAt) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if !filter.IncludeCanceled && e.Status == event.StatusCanceled {
			continue
		}
		events = append(events, r.withParticipants(e))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartAt.Before(events[j].StartAt) })
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, e *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.events[e.ID]
	if !ok {
		return event.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now()

	stored := *e
	stored.Participants = nil
	r.s.events[e.ID] = stored
	r.s.emit("events", realtime.ActionUpdate, stored)
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.ErrNotFound
	}
	delete(r.s.events, id)
	delete(r.s.eventParticipants, id)
	r.s.emit("events", realtime.ActionDelete, e)
	return nil
}

func (r *eventRepository) SetResponse(ctx context.Context, p *event.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[p.EventID]; !ok {
		return event.ErrNotFound
	}
	if p.RespondedAt.IsZero() {
		p.RespondedAt = time.Now()
	}
	participants := r.s.eventParticipants[p.EventID]
	if participants == nil {
		participants = make(map[uuid.UUID]event.Participant)
		r.s.eventParticipants[p.EventID] = participants
	}
	action := realtime.ActionInsert
	if _, exists := participants[p.ProfileID]; exists {
		action = realtime.ActionUpdate
	}
	participants[p.ProfileID] = *p
	r.s.emit("event_participants", action, *p)
	return nil
}

func (r *eventRepository) RemoveResponse(ctx context.Context, eventID, profileID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.eventParticipants[eventID][profileID]
	if !ok {
		return event.ErrNotParticipant
	}
	delete(r.s.eventParticipants[eventID], profileID)
	r.s.emit("event_participants", realtime.ActionDelete, p)
	return nil
}

func (r *eventRepository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*event.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.events[eventID]; !ok {
		return nil, event.ErrNotFound
	}
	participants := []*event.Participant{}
	for _, p := range r.s.eventParticipants[eventID] {
		participants = append(participants, &p)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].RespondedAt.Before(participants[j].RespondedAt)
	})
	return participants, nil
}
