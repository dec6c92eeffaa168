package services

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

// NoteService manages member notes
type NoteService struct {
	notes    note.Repository
	projects project.Repository
	log      *log.Logger
}

// NewNoteService creates a new note service
func NewNoteService(notes note.Repository, projects project.Repository) *NoteService {
	return &NoteService{
		notes:    notes,
		projects: projects,
		log:      logger.Service("notes"),
	}
}

// CreateNoteRequest represents a request to write a note
type CreateNoteRequest struct {
	Title      string          `json:"title" binding:"required"`
	Content    string          `json:"content"`
	ProjectID  string          `json:"project_id"`
	Tags       []string        `json:"tags"`
	Pinned     bool            `json:"pinned"`
	Visibility note.Visibility `json:"visibility"`
}

// UpdateNoteRequest holds the note fields to change. An empty project id detaches the note.
type UpdateNoteRequest struct {
	Title      *string          `json:"title"`
	Content    *string          `json:"content"`
	ProjectID  *string          `json:"project_id"`
	Tags       *[]string        `json:"tags"`
	Pinned     *bool            `json:"pinned"`
	Visibility *note.Visibility `json:"visibility"`
}

// NoteListRequest narrows note listings
type NoteListRequest struct {
	AuthorID  uuid.UUID
	ProjectID uuid.UUID
	Tag       string
	Page      common.Page
}

// Create stores a note written by the actor
func (s *NoteService) Create(ctx context.Context, actor common.Actor, req CreateNoteRequest) (*note.Note, error) {
	s.log.Debug("Creating note", "title", req.Title, "by", actor.ID)

	if err := validation.ValidateMaxLength(req.Title, 200, "title"); err != nil {
		return nil, err
	}
	n := note.NewNote(req.Title, req.Content, actor.ID, req.Tags)
	n.Pinned = req.Pinned
	if req.Visibility != "" {
		n.Visibility = req.Visibility
	}
	projectID, err := s.projectRef(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	n.ProjectID = projectID
	if err := n.Validate(); err != nil {
		return nil, err
	}

	if err := s.notes.Create(ctx, n); err != nil {
		s.log.Error("Failed to create note", "error", err)
		return nil, err
	}

	s.log.Info("Note created", "note_id", n.ID)
	return n, nil
}

// Get returns a note visible to the actor
func (s *NoteService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*note.Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.VisibleTo(actor.ID) {
		return nil, note.ErrNotFound
	}
	return n, nil
}

// List returns the notes visible to the actor, pinned first
func (s *NoteService) List(ctx context.Context, actor common.Actor, req NoteListRequest) ([]*note.Note, error) {
	return s.notes.List(ctx, note.Filter{
		Viewer:    actor.ID,
		AuthorID:  req.AuthorID,
		ProjectID: req.ProjectID,
		Tag:       strings.ToLower(strings.TrimSpace(req.Tag)),
		Page:      req.Page.Normalize(),
	})
}

// Update changes a note. Author only.
func (s *NoteService) Update(ctx context.Context, actor common.Actor, id uuid.UUID, req UpdateNoteRequest) (*note.Note, error) {
	n, err := s.authored(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if err := validation.ValidateMaxLength(*req.Title, 200, "title"); err != nil {
			return nil, err
		}
		n.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		n.Content = *req.Content
	}
	if req.ProjectID != nil {
		if n.ProjectID, err = s.projectRef(ctx, *req.ProjectID); err != nil {
			return nil, err
		}
	}
	if req.Tags != nil {
		n.Tags = note.NormalizeTags(*req.Tags)
	}
	if req.Pinned != nil {
		n.Pinned = *req.Pinned
	}
	if req.Visibility != nil {
		n.Visibility = *req.Visibility
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	if err := s.notes.Update(ctx, n); err != nil {
		return nil, err
	}
	s.log.Info("Note updated", "note_id", n.ID)
	return n, nil
}

// Delete removes a note. Author only.
func (s *NoteService) Delete(ctx context.Context, actor common.Actor, id uuid.UUID) error {
	if _, err := s.authored(ctx, actor, id); err != nil {
		return err
	}
	if err := s.notes.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Note deleted", "note_id", id)
	return nil
}

func (s *NoteService) authored(ctx context.Context, actor common.Actor, id uuid.UUID) (*note.Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.VisibleTo(actor.ID) {
		return nil, note.ErrNotFound
	}
	if n.AuthorID != actor.ID {
		return nil, note.ErrNotAuthor
	}
	return n, nil
}

func (s *NoteService) projectRef(ctx context.Context, value string) (*uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := validation.ParseUUID(value, "project_id")
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return &id, nil
}
