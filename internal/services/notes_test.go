package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/project"
)

func TestNoteVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.member(t, "ana@example.org", profile.RoleMember)
	reader := env.member(t, "bob@example.org", profile.RoleAdmin)

	private, err := env.services.Notes.Create(ctx, author, CreateNoteRequest{Title: "Draft budget", Tags: []string{"Budget", " budget "}})
	require.NoError(t, err)
	assert.Equal(t, note.VisibilityPrivate, private.Visibility)
	assert.Equal(t, []string{"budget"}, []string(private.Tags))

	shared, err := env.services.Notes.Create(ctx, author, CreateNoteRequest{Title: "Minutes", Visibility: note.VisibilityShared, Pinned: true})
	require.NoError(t, err)

	_, err = env.services.Notes.Get(ctx, reader, private.ID)
	assert.ErrorIs(t, err, note.ErrNotFound)
	_, err = env.services.Notes.Get(ctx, reader, shared.ID)
	require.NoError(t, err)

	visible, err := env.services.Notes.List(ctx, reader, NoteListRequest{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, shared.ID, visible[0].ID)

	own, err := env.services.Notes.List(ctx, author, NoteListRequest{})
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.True(t, own[0].Pinned)

	tagged, err := env.services.Notes.List(ctx, author, NoteListRequest{Tag: "BUDGET"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, private.ID, tagged[0].ID)

	_, err = env.services.Notes.Create(ctx, author, CreateNoteRequest{Title: "Bad", Visibility: "public"})
	assert.Error(t, err)
}

func TestNoteAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.member(t, "ana@example.org", profile.RoleMember)
	admin := env.member(t, "root@example.org", profile.RoleAdmin)

	n, err := env.services.Notes.Create(ctx, author, CreateNoteRequest{Title: "Shared", Visibility: note.VisibilityShared})
	require.NoError(t, err)

	_, err = env.services.Notes.Update(ctx, admin, n.ID, UpdateNoteRequest{Title: ptr("Edited")})
	assert.ErrorIs(t, err, note.ErrNotAuthor)
	assert.ErrorIs(t, env.services.Notes.Delete(ctx, admin, n.ID), note.ErrNotAuthor)

	updated, err := env.services.Notes.Update(ctx, author, n.ID, UpdateNoteRequest{Content: ptr("Body"), Tags: &[]string{"Ops"}})
	require.NoError(t, err)
	assert.Equal(t, "Body", updated.Content)
	assert.Equal(t, []string{"ops"}, []string(updated.Tags))

	require.NoError(t, env.services.Notes.Delete(ctx, author, n.ID))
}

func TestNoteProjectReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.member(t, "ana@example.org", profile.RoleMember)

	_, err := env.services.Notes.Create(ctx, author, CreateNoteRequest{Title: "Orphan", ProjectID: uuid.NewString()})
	assert.ErrorIs(t, err, project.ErrNotFound)

	p, err := env.services.Projects.Create(ctx, author, CreateProjectRequest{Name: "Garden"})
	require.NoError(t, err)

	n, err := env.services.Notes.Create(ctx, author, CreateNoteRequest{Title: "Seeds", ProjectID: p.ID.String()})
	require.NoError(t, err)
	require.NotNil(t, n.ProjectID)

	byProject, err := env.services.Notes.List(ctx, author, NoteListRequest{ProjectID: p.ID})
	require.NoError(t, err)
	assert.Len(t, byProject, 1)

	detached, err := env.services.Notes.Update(ctx, author, n.ID, UpdateNoteRequest{ProjectID: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, detached.ProjectID)
}
