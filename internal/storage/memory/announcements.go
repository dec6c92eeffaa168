package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/realtime"
)

type announcementRepository struct {
	s *Store
}

func cloneAnnouncement(a announcement.Announcement) *announcement.Announcement {
	if a.ExpiresAt != nil {
		at := *a.ExpiresAt
		a.ExpiresAt = &at
	}
	return &a
}

func (r *announcementRepository) Create(ctx context.Context, a *announcement.Announcement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.PublishedAt.IsZero() {
		a.PublishedAt = now
	}

	r.s.announcements[a.ID] = *cloneAnnouncement(*a)
	r.s.emit("announcements", realtime.ActionInsert, a)
	return nil
}

func (r *announcementRepository) GetByID(ctx context.Context, id uuid.UUID) (*announcement.Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.announcements[id]
	if !ok {
		return nil, announcement.ErrNotFound
	}
	return cloneAnnouncement(a), nil
}

func (r *announcementRepository) List(ctx context.Context, filter announcement.Filter) ([]*announcement.Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := []*announcement.Announcement{}
	for _, a := range r.s.announcements {
		if !filter.ActiveAt.IsZero() && !a.IsActiveAt(filter.ActiveAt) {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		result = append(result, cloneAnnouncement(a))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Pinned != result[j].Pinned {
			return result[i].Pinned
		}
		return result[i].PublishedAt.After(result[j].PublishedAt)
	})

	page := filter.Page.Normalize()
	return paginate(result, page.Offset, page.Limit), nil
}

func (r *announcementRepository) Update(ctx context.Context, a *announcement.Announcement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.announcements[a.ID]
	if !ok {
		return announcement.ErrNotFound
	}
	a.AuthorID = existing.AuthorID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now()

	r.s.announcements[a.ID] = *cloneAnnouncement(*a)
	r.s.emit("announcements", realtime.ActionUpdate, a)
	return nil
}

func (r *announcementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.announcements[id]
	if !ok {
		return announcement.ErrNotFound
	}
	delete(r.s.announcements, id)
	r.s.emit("announcements", realtime.ActionDelete, a)
	return nil
}
