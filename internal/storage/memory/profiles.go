package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/realtime"
)

type profileRepository struct {
	s *Store
}

func cloneProfile(p profile.Profile) *profile.Profile {
	p.Skills = append(pq.StringArray{}, p.Skills...)
	return &p
}

func (r *profileRepository) Create(ctx context.Context, p *profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.profiles {
		if existing.Email == p.Email {
			return profile.ErrEmailTaken
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	r.s.profiles[p.ID] = *cloneProfile(*p)
	r.s.emit("profiles", realtime.ActionInsert, p)
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = profile.NormalizeEmail(email)
	for _, p := range r.s.profiles {
		if p.Email == email {
			return cloneProfile(p), nil
		}
	}
	return nil, profile.ErrNotFound
}

func (r *profileRepository) Update(ctx context.Context, p *profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.profiles[p.ID]; !ok {
		return profile.ErrNotFound
	}
	for id, existing := range r.s.profiles {
		if id != p.ID && existing.Email == p.Email {
			return profile.ErrEmailTaken
		}
	}
	p.UpdatedAt = time.Now()
	r.s.profiles[p.ID] = *cloneProfile(*p)
	r.s.emit("profiles", realtime.ActionUpdate, p)
	return nil
}

func (r *profileRepository) List(ctx context.Context, filter profile.DirectoryFilter) ([]*profile.Profile, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	skill := strings.ToLower(strings.TrimSpace(filter.Skill))

	var matched []*profile.Profile
	for _, p := range r.s.profiles {
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.FullName()+" "+p.Email), query) {
			continue
		}
		if skill != "" && !slices.ContainsFunc(p.Skills, func(s string) bool { return strings.EqualFold(s, skill) }) {
			continue
		}
		matched = append(matched, cloneProfile(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		if matched[i].FirstName != matched[j].FirstName {
			return matched[i].FirstName < matched[j].FirstName
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	page := filter.Page.Normalize()
	return paginate(matched, page.Offset, page.Limit), int64(len(matched)), nil
}

func (r *profileRepository) CreateSession(ctx context.Context, sess *profile.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.profiles[sess.ProfileID]; !ok {
		return profile.ErrNotFound
	}
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	r.s.sessions[sess.ID] = *sess
	return nil
}

func (r *profileRepository) GetSession(ctx context.Context, id uuid.UUID) (*profile.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, profile.ErrSessionNotFound
	}
	return &sess, nil
}

func (r *profileRepository) RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return profile.ErrSessionNotFound
	}
	if sess.RevokedAt == nil {
		sess.RevokedAt = &at
		r.s.sessions[id] = sess
	}
	return nil
}
