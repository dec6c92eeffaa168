package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/storage/objects"
	"github.com/gravadigital/community-portal/internal/validation"
)

var (
	ErrAttachmentsDisabled = common.Kind(common.ErrInvalid, "attachments are not enabled")
)

const (
	watchBuffer    = 16
	watchDedupSize = 1024
	maxAttachments = 10
)

// MessagingService handles conversations, messages and attachments
type MessagingService struct {
	messages    message.Repository
	profiles    profile.Repository
	blobs       objects.Store
	hub         Subscriber
	maxFileSize int64
	urlExpiry   time.Duration
	now         Clock
	log         *log.Logger
}

// NewMessagingService creates a new messaging service. blobs may be nil, which disables attachments.
func NewMessagingService(messages message.Repository, profiles profile.Repository, blobs objects.Store, hub Subscriber, cfg *config.Config) *MessagingService {
	return &MessagingService{
		messages:    messages,
		profiles:    profiles,
		blobs:       blobs,
		hub:         hub,
		maxFileSize: cfg.Upload.MaxFileSize,
		urlExpiry:   cfg.Objects.URLExpiry,
		now:         time.Now,
		log:         logger.Service("messaging"),
	}
}

// CreateConversationRequest represents a new conversation
type CreateConversationRequest struct {
	Title          string   `json:"title"`
	ParticipantIDs []string `json:"participant_ids" binding:"required"`
}

// SendMessageRequest represents the text of a new message
type SendMessageRequest struct {
	Content string `json:"content" form:"content"`
}

// Upload is a file attached to a new message
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Download is either a presigned URL or a stream of the attachment
type Download struct {
	Attachment *message.Attachment
	URL        string
	Body       io.ReadCloser
}

// CreateConversation opens a conversation with the given profiles. A direct
// conversation is reused when one already exists; created is false then.
func (s *MessagingService) CreateConversation(ctx context.Context, actor common.Actor, req CreateConversationRequest) (conv *message.Conversation, created bool, err error) {
	s.log.Debug("Creating conversation", "by", actor.ID, "participants", len(req.ParticipantIDs))

	ids, err := validation.ParseUUIDs(req.ParticipantIDs, "participant_ids")
	if err != nil {
		return nil, false, err
	}
	if err := validation.ValidateMaxLength(req.Title, 200, "title"); err != nil {
		return nil, false, err
	}
	for _, id := range ids {
		if _, err := s.profiles.GetByID(ctx, id); err != nil {
			return nil, false, err
		}
	}

	c := message.NewConversation(req.Title, actor.ID, ids)
	if err := c.Validate(); err != nil {
		return nil, false, err
	}

	if !c.IsGroup {
		existing, err := s.messages.FindDirect(ctx, c.Participants[0].ProfileID, c.Participants[1].ProfileID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, message.ErrConversationNotFound) {
			return nil, false, err
		}
	}

	if err := s.messages.CreateConversation(ctx, c); err != nil {
		s.log.Error("Failed to create conversation", "error", err)
		return nil, false, err
	}

	s.log.Info("Conversation created", "conversation_id", c.ID, "group", c.IsGroup)
	return c, true, nil
}

// Get returns a conversation the actor takes part in
func (s *MessagingService) Get(ctx context.Context, actor common.Actor, id uuid.UUID) (*message.Conversation, error) {
	c, err := s.messages.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(actor.ID) {
		return nil, message.ErrNotParticipant
	}
	return c, nil
}

// List returns the actor's conversations with their latest message and unread count
func (s *MessagingService) List(ctx context.Context, actor common.Actor) ([]*message.Summary, error) {
	conversations, err := s.messages.ListConversations(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.UnreadCounts(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*message.Summary, 0, len(conversations))
	for _, c := range conversations {
		last, err := s.messages.LastMessage(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &message.Summary{Conversation: c, LastMessage: last, Unread: unread[c.ID]})
	}
	return summaries, nil
}

// Send stores a message with its attachments. Blobs are uploaded first and
// removed again when the message cannot be stored.
func (s *MessagingService) Send(ctx context.Context, actor common.Actor, conversationID uuid.UUID, req SendMessageRequest, uploads []Upload) (*message.Message, error) {
	if _, err := s.Get(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	if len(uploads) > 0 && s.blobs == nil {
		return nil, ErrAttachmentsDisabled
	}
	if len(uploads) > maxAttachments {
		return nil, common.NewValidationError("files", fmt.Sprintf("at most %d files per message", maxAttachments))
	}

	m := message.NewMessage(conversationID, actor.ID, req.Content)
	for _, u := range uploads {
		if u.Size > s.maxFileSize {
			return nil, fmt.Errorf("%w: %s", message.ErrFileTooLarge, u.FileName)
		}
		a := message.NewAttachment(conversationID, m.ID, u.FileName, u.ContentType, u.Size)
		m.Attachments = append(m.Attachments, *a)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var stored []string
	for i, u := range uploads {
		a := m.Attachments[i]
		if err := s.blobs.Put(ctx, a.ObjectKey, u.Reader, u.Size, a.ContentType); err != nil {
			s.log.Error("Failed to upload attachment", "key", a.ObjectKey, "error", err)
			s.removeBlobs(stored)
			return nil, fmt.Errorf("failed to upload %s: %w", a.FileName, err)
		}
		stored = append(stored, a.ObjectKey)
	}

	if err := s.messages.SendMessage(ctx, m); err != nil {
		s.log.Error("Failed to store message", "conversation_id", conversationID, "error", err)
		s.removeBlobs(stored)
		return nil, err
	}

	s.log.Info("Message sent", "conversation_id", conversationID, "message_id", m.ID, "attachments", len(m.Attachments))
	return m, nil
}

// removeBlobs deletes uploaded objects with its own timeout
func (s *MessagingService) removeBlobs(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := s.blobs.Remove(ctx, key); err != nil {
			s.log.Warn("Failed to remove orphan attachment", "key", key, "error", err)
		}
	}
}

// Messages returns a page of messages, newest first
func (s *MessagingService) Messages(ctx context.Context, actor common.Actor, conversationID uuid.UUID, q message.PageQuery) ([]*message.Message, error) {
	if _, err := s.Get(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, conversationID, q)
}

// MarkRead moves the actor's read marker to now
func (s *MessagingService) MarkRead(ctx context.Context, actor common.Actor, conversationID uuid.UUID) error {
	return s.messages.MarkRead(ctx, conversationID, actor.ID, s.now().UTC())
}

// Unread returns the unread count per conversation and their sum
func (s *MessagingService) Unread(ctx context.Context, actor common.Actor) (map[uuid.UUID]int, int, error) {
	counts, err := s.messages.UnreadCounts(ctx, actor.ID)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return counts, total, nil
}

// Attachment resolves an attachment the actor can read. A presigned URL is
// returned when the object store supports it, otherwise the body is streamed.
func (s *MessagingService) Attachment(ctx context.Context, actor common.Actor, id uuid.UUID) (*Download, error) {
	if s.blobs == nil {
		return nil, ErrAttachmentsDisabled
	}
	a, err := s.messages.GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.GetMessage(ctx, a.MessageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, m.ConversationID); err != nil {
		return nil, err
	}

	url, err := s.blobs.URL(ctx, a.ObjectKey, a.FileName, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign attachment url: %w", err)
	}
	if url != "" {
		return &Download{Attachment: a, URL: url}, nil
	}

	body, _, err := s.blobs.Get(ctx, a.ObjectKey)
	if errors.Is(err, objects.ErrNotFound) {
		return nil, message.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Download{Attachment: a, Body: body}, nil
}

// Watch streams the messages other participants post to the conversation.
// The channel is closed when ctx ends.
func (s *MessagingService) Watch(ctx context.Context, actor common.Actor, conversationID uuid.UUID) (<-chan *message.Message, error) {
	if _, err := s.Get(ctx, actor, conversationID); err != nil {
		return nil, err
	}

	sub := s.hub.Subscribe(ctx, realtime.Filter{
		Table:   "messages",
		Actions: []realtime.Action{realtime.ActionInsert},
		Column:  "conversation_id",
		Value:   conversationID.String(),
	})
	out := make(chan *message.Message, watchBuffer)

	go func() {
		defer close(out)
		defer sub.Close()

		self := actor.ID.String()
		seen := make(map[uuid.UUID]struct{})
		for change := range sub.Changes() {
			if change.Field("sender_id") == self {
				continue
			}
			id, err := uuid.Parse(change.Field("id"))
			if err != nil {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			if len(seen) >= watchDedupSize {
				clear(seen)
			}
			seen[id] = struct{}{}

			m, err := s.messages.GetMessage(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warn("Failed to load watched message", "message_id", id, "error", err)
				}
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.log.Debug("Watching conversation", "conversation_id", conversationID, "profile_id", actor.ID)
	return out, nil
}
