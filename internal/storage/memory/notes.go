package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/realtime"
)

type noteRepository struct {
	s *Store
}

func cloneNote(n note.Note) *note.Note {
	n.Tags = append(pq.StringArray{}, n.Tags...)
	if n.ProjectID != nil {
		id := *n.ProjectID
		n.ProjectID = &id
	}
	return &n
}

func (r *noteRepository) Create(ctx context.Context, n *note.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now()
	n.CreatedAt, n.UpdatedAt = now, now

	r.s.notes[n.ID] = *cloneNote(*n)
	r.s.emit("notes", realtime.ActionInsert, n)
	return nil
}

func (r *noteRepository) GetByID(ctx context.Context, id uuid.UUID) (*note.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.notes[id]
	if !ok {
		return nil, note.ErrNotFound
	}
	return cloneNote(n), nil
}

// List returns matching notes, pinned first then most recently updated
func (r *noteRepository) List(ctx context.Context, filter note.Filter) ([]*note.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	notes := []*note.Note{}
	for _, n := range r.s.notes {
		if filter.Viewer != uuid.Nil && !n.VisibleTo(filter.Viewer) {
			continue
		}
		if filter.AuthorID != uuid.Nil && n.AuthorID != filter.AuthorID {
			continue
		}
		if filter.ProjectID != uuid.Nil && (n.ProjectID == nil || *n.ProjectID != filter.ProjectID) {
			continue
		}
		if filter.Tag != "" && !n.HasTag(filter.Tag) {
			continue
		}
		notes = append(notes, cloneNote(n))
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Pinned != notes[j].Pinned {
			return notes[i].Pinned
		}
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})

	page := filter.Page.Normalize()
	return paginate(notes, page.Offset, page.Limit), nil
}

func (r *noteRepository) Update(ctx context.Context, n *note.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.notes[n.ID]
	if !ok {
		return note.ErrNotFound
	}
	n.AuthorID = existing.AuthorID
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = time.Now()

	r.s.notes[n.ID] = *cloneNote(*n)
	r.s.emit("notes", realtime.ActionUpdate, n)
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notes[id]
	if !ok {
		return note.ErrNotFound
	}
	delete(r.s.notes, id)
	r.s.emit("notes", realtime.ActionDelete, n)
	return nil
}
