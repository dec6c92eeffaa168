package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/realtime"
)

type projectRepository struct {
	s *Store
}

func (r *projectRepository) withMembers(p project.Project) *project.Project {
	p.Members = nil
	for _, m := range r.s.projectMembers[p.ID] {
		p.Members = append(p.Members, m)
	}
	sort.Slice(p.Members, func(i, j int) bool { return p.Members[i].JoinedAt.Before(p.Members[j].JoinedAt) })
	return &p
}

func (r *projectRepository) Create(ctx context.Context, p *project.Project) error {
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
	stored.Members = nil
	r.s.projects[p.ID] = stored

	owner := project.Member{ProjectID: p.ID, ProfileID: p.OwnerID, Role: project.RoleOwner, JoinedAt: now}
	r.s.projectMembers[p.ID] = map[uuid.UUID]project.Member{p.OwnerID: owner}
	p.Members = []project.Member{owner}

	r.s.emit("projects", realtime.ActionInsert, stored)
	r.s.emit("project_members", realtime.ActionInsert, owner)
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	return r.withMembers(p), nil
}

func (r *projectRepository) List(ctx context.Context, status project.Status) ([]*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	projects := []*project.Project{}
	for _, p := range r.s.projects {
		if status != "" && p.Status != status {
			continue
		}
		projects = append(projects, r.withMembers(p))
	}
	sortProjects(projects)
	return projects, nil
}

func (r *projectRepository) ListForMember(ctx context.Context, profileID uuid.UUID) ([]*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	projects := []*project.Project{}
	for id, members := range r.s.projectMembers {
		if _, ok := members[profileID]; ok {
			projects = append(projects, r.withMembers(r.s.projects[id]))
		}
	}
	sortProjects(projects)
	return projects, nil
}

func sortProjects(projects []*project.Project) {
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
}

func (r *projectRepository) Update(ctx context.Context, p *project.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.projects[p.ID]
	if !ok {
		return project.ErrNotFound
	}
	p.OwnerID = existing.OwnerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()

	stored := *p
	stored.Members = nil
	r.s.projects[p.ID] = stored
	r.s.emit("projects", realtime.ActionUpdate, stored)
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return project.ErrNotFound
	}
	delete(r.s.projects, id)
	delete(r.s.projectMembers, id)
	for noteID, n := range r.s.notes {
		if n.ProjectID != nil && *n.ProjectID == id {
			n.ProjectID = nil
			r.s.notes[noteID] = n
		}
	}
	r.s.emit("projects", realtime.ActionDelete, p)
	return nil
}

func (r *projectRepository) AddMember(ctx context.Context, m *project.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	members, ok := r.s.projectMembers[m.ProjectID]
	if !ok {
		return project.ErrNotFound
	}
	if _, exists := members[m.ProfileID]; exists {
		return project.ErrAlreadyMember
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	members[m.ProfileID] = *m
	r.s.emit("project_members", realtime.ActionInsert, *m)
	return nil
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, profileID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[projectID]
	if !ok {
		return project.ErrNotFound
	}
	if p.OwnerID == profileID {
		return project.ErrOwnerRemoval
	}
	m, exists := r.s.projectMembers[projectID][profileID]
	if !exists {
		return project.ErrMemberNotFound
	}
	delete(r.s.projectMembers[projectID], profileID)
	r.s.emit("project_members", realtime.ActionDelete, m)
	return nil
}

func (r *projectRepository) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*project.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	members, ok := r.s.projectMembers[projectID]
	if !ok {
		return nil, project.ErrNotFound
	}
	result := make([]*project.Member, 0, len(members))
	for _, m := range members {
		result = append(result, &m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].JoinedAt.Before(result[j].JoinedAt) })
	return result, nil
}
