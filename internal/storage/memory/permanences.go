package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/realtime"
)

type permanenceRepository struct {
	s *Store
}

func (r *permanenceRepository) withParticipants(p permanence.Permanence) *permanence.Permanence {
	p.Participants = nil
	for _, part := range r.s.permanenceParticipants[p.ID] {
		p.Participants = append(p.Participants, part)
	}
	sort.Slice(p.Participants, func(i, j int) bool {
		return p.Participants[i].RegisteredAt.Before(p.Participants[j].RegisteredAt)
	})
	return &p
}

func (r *permanenceRepository) Create(ctx context.Context, p *permanence.Permanence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now

	stored := *p
	stored.Participants = nil
	r.s.permanences[p.ID] = stored
	r.s.permanenceParticipants[p.ID] = make(map[uuid.UUID]permanence.Participant)
	r.s.emit("permanences", realtime.ActionInsert, stored)
	return nil
}

func (r *permanenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*permanence.Permanence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.permanences[id]
	if !ok {
		return nil, permanence.ErrNotFound
	}
	return r.withParticipants(p), nil
}

func (r *permanenceRepository) List(ctx context.Context, filter permanence.Filter) ([]*permanence.Permanence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := []*permanence.Permanence{}
	for _, p := range r.s.permanences {
		if !filter.Range.Overlaps(p.StartAt, p.EndAt) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.ProfileID != uuid.Nil {
			if _, ok := r.s.permanenceParticipants[p.ID][filter.ProfileID]; !ok {
				continue
			}
		}
		result = append(result, r.withParticipants(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.Before(result[j].StartAt) })
	return result, nil
}

// Update stores shift fields. The capacity may not drop below the current
// registrations and the open/full status follows the new capacity.
func (r *permanenceRepository) Update(ctx context.Context, p *permanence.Permanence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.permanences[p.ID]
	if !ok {
		return permanence.ErrNotFound
	}
	count := len(r.s.permanenceParticipants[p.ID])
	if p.MaxVolunteers < count {
		return permanence.ErrCapacityBelowLoad
	}
	p.Status = p.StatusAfterCount(count)
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()

	stored := *p
	stored.Participants = nil
	r.s.permanences[p.ID] = stored
	r.s.emit("permanences", realtime.ActionUpdate, stored)
	return nil
}

func (r *permanenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.permanences[id]
	if !ok {
		return permanence.ErrNotFound
	}
	delete(r.s.permanences, id)
	delete(r.s.permanenceParticipants, id)
	r.s.emit("permanences", realtime.ActionDelete, p)
	return nil
}

// Register adds the volunteer under the store lock, which plays the role of the row lock
func (r *permanenceRepository) Register(ctx context.Context, permanenceID, profileID uuid.UUID) (*permanence.Permanence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.permanences[permanenceID]
	if !ok {
		return nil, permanence.ErrNotFound
	}
	participants := r.s.permanenceParticipants[permanenceID]
	if err := p.CheckRegistration(len(participants), hasKey(participants, profileID)); err != nil {
		return nil, err
	}

	part := permanence.Participant{PermanenceID: permanenceID, ProfileID: profileID, RegisteredAt: time.Now()}
	participants[profileID] = part
	r.s.emit("permanence_participants", realtime.ActionInsert, part)

	if next := p.StatusAfterCount(len(participants)); next != p.Status {
		p.Status = next
		p.UpdatedAt = time.Now()
		r.s.permanences[permanenceID] = p
		r.s.emit("permanences", realtime.ActionUpdate, p)
	}
	return r.withParticipants(p), nil
}

func hasKey[V any](m map[uuid.UUID]V, key uuid.UUID) bool {
	_, ok := m[key]
	return ok
}

func (r *permanenceRepository) Unregister(ctx context.Context, permanenceID, profileID uuid.UUID) (*permanence.Permanence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.permanences[permanenceID]
	if !ok {
		return nil, permanence.ErrNotFound
	}
	participants := r.s.permanenceParticipants[permanenceID]
	part, exists := participants[profileID]
	if !exists {
		return nil, permanence.ErrNotRegistered
	}
	delete(participants, profileID)
	r.s.emit("permanence_participants", realtime.ActionDelete, part)

	if next := p.StatusAfterCount(len(participants)); next != p.Status {
		p.Status = next
		p.UpdatedAt = time.Now()
		r.s.permanences[permanenceID] = p
		r.s.emit("permanences", realtime.ActionUpdate, p)
	}
	return r.withParticipants(p), nil
}

func (r *permanenceRepository) ListParticipants(ctx context.Context, permanenceID uuid.UUID) ([]*permanence.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.permanences[permanenceID]; !ok {
		return nil, permanence.ErrNotFound
	}
	result := []*permanence.Participant{}
	for _, part := range r.s.permanenceParticipants[permanenceID] {
		result = append(result, &part)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RegisteredAt.Before(result[j].RegisteredAt) })
	return result, nil
}

func (r *permanenceRepository) CountParticipants(ctx context.Context, permanenceID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.permanences[permanenceID]; !ok {
		return 0, permanence.ErrNotFound
	}
	return len(r.s.permanenceParticipants[permanenceID]), nil
}
