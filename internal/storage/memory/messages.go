package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/realtime"
)

const defaultMessagePage = 50

type messageRepository struct {
	s *Store
}

func (r *messageRepository) withParticipants(c message.Conversation) *message.Conversation {
	c.Participants = nil
	for _, p := range r.s.conversationParticipants[c.ID] {
		c.Participants = append(c.Participants, p)
	}
	sort.Slice(c.Participants, func(i, j int) bool {
		pi, pj := c.Participants[i], c.Participants[j]
		if (pi.ProfileID == c.CreatedBy) != (pj.ProfileID == c.CreatedBy) {
			return pi.ProfileID == c.CreatedBy
		}
		if !pi.JoinedAt.Equal(pj.JoinedAt) {
			return pi.JoinedAt.Before(pj.JoinedAt)
		}
		return pi.ProfileID.String() < pj.ProfileID.String()
	})
	return &c
}

func (r *messageRepository) withAttachments(m message.Message) *message.Message {
	m.Attachments = nil
	for _, a := range r.s.attachments {
		if a.MessageID == m.ID {
			m.Attachments = append(m.Attachments, a)
		}
	}
	sort.Slice(m.Attachments, func(i, j int) bool { return m.Attachments[i].CreatedAt.Before(m.Attachments[j].CreatedAt) })
	return &m
}

func (r *messageRepository) CreateConversation(ctx context.Context, c *message.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now

	stored := *c
	stored.Participants = nil
	r.s.conversations[c.ID] = stored

	participants := make(map[uuid.UUID]message.Participant, len(c.Participants))
	for i := range c.Participants {
		c.Participants[i].ConversationID = c.ID
		if c.Participants[i].JoinedAt.IsZero() {
			c.Participants[i].JoinedAt = now
		}
		participants[c.Participants[i].ProfileID] = c.Participants[i]
	}
	r.s.conversationParticipants[c.ID] = participants

	r.s.emit("conversations", realtime.ActionInsert, stored)
	for _, p := range c.Participants {
		r.s.emit("conversation_participants", realtime.ActionInsert, p)
	}
	return nil
}

func (r *messageRepository) GetConversation(ctx context.Context, id uuid.UUID) (*message.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, message.ErrConversationNotFound
	}
	return r.withParticipants(c), nil
}

func (r *messageRepository) FindDirect(ctx context.Context, a, b uuid.UUID) (*message.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for id, c := range r.s.conversations {
		if c.IsGroup {
			continue
		}
		participants := r.s.conversationParticipants[id]
		if len(participants) != 2 {
			continue
		}
		_, hasA := participants[a]
		_, hasB := participants[b]
		if hasA && hasB {
			return r.withParticipants(c), nil
		}
	}
	return nil, message.ErrConversationNotFound
}

// ListConversations orders by latest activity first
func (r *messageRepository) ListConversations(ctx context.Context, profileID uuid.UUID) ([]*message.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := []*message.Conversation{}
	for id, participants := range r.s.conversationParticipants {
		if _, ok := participants[profileID]; ok {
			result = append(result, r.withParticipants(r.s.conversations[id]))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return lastActivity(result[i]).After(lastActivity(result[j]))
	})
	return result, nil
}

func lastActivity(c *message.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func (r *messageRepository) SendMessage(ctx context.Context, m *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[m.ConversationID]
	if !ok {
		return message.ErrConversationNotFound
	}
	sender, ok := r.s.conversationParticipants[m.ConversationID][m.SenderID]
	if !ok {
		return message.ErrNotParticipant
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	stored := *m
	stored.Attachments = nil
	r.s.messages[m.ID] = stored
	r.s.emit("messages", realtime.ActionInsert, stored)

	for i := range m.Attachments {
		a := &m.Attachments[i]
		a.MessageID = m.ID
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = m.CreatedAt
		}
		r.s.attachments[a.ID] = *a
		r.s.emit("message_attachments", realtime.ActionInsert, *a)
	}

	at := m.CreatedAt
	c.LastMessageAt = &at
	c.UpdatedAt = time.Now()
	r.s.conversations[c.ID] = c
	r.s.emit("conversations", realtime.ActionUpdate, c)

	sender.LastReadAt = &at
	r.s.conversationParticipants[c.ID][m.SenderID] = sender
	return nil
}

func (r *messageRepository) GetMessage(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, message.ErrMessageNotFound
	}
	return r.withAttachments(m), nil
}

// ListMessages returns messages older than q.Before, newest first
func (r *messageRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, q message.PageQuery) ([]*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.conversations[conversationID]; !ok {
		return nil, message.ErrConversationNotFound
	}
	result := []*message.Message{}
	for _, m := range r.s.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if !q.Before.IsZero() && !m.CreatedAt.Before(q.Before) {
			continue
		}
		result = append(result, r.withAttachments(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	limit := q.Limit
	if limit <= 0 {
		limit = defaultMessagePage
	}
	return paginate(result, 0, limit), nil
}

// LastMessage returns nil when the conversation has no messages
func (r *messageRepository) LastMessage(ctx context.Context, conversationID uuid.UUID) (*message.Message, error) {
	msgs, err := r.ListMessages(ctx, conversationID, message.PageQuery{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

func (r *messageRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*message.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.attachments[id]
	if !ok {
		return nil, message.ErrAttachmentNotFound
	}
	return &a, nil
}

// MarkRead moves the read marker forward; it never moves back
func (r *messageRepository) MarkRead(ctx context.Context, conversationID, profileID uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[conversationID]; !ok {
		return message.ErrConversationNotFound
	}
	p, ok := r.s.conversationParticipants[conversationID][profileID]
	if !ok {
		return message.ErrNotParticipant
	}
	if p.LastReadAt == nil || at.After(*p.LastReadAt) {
		p.LastReadAt = &at
		r.s.conversationParticipants[conversationID][profileID] = p
		r.s.emit("conversation_participants", realtime.ActionUpdate, p)
	}
	return nil
}

func (r *messageRepository) UnreadCounts(ctx context.Context, profileID uuid.UUID) (map[uuid.UUID]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	markers := make(map[uuid.UUID]*time.Time)
	counts := make(map[uuid.UUID]int)
	for id, participants := range r.s.conversationParticipants {
		if p, ok := participants[profileID]; ok {
			markers[id] = p.LastReadAt
			counts[id] = 0
		}
	}
	for _, m := range r.s.messages {
		marker, ok := markers[m.ConversationID]
		if !ok || m.SenderID == profileID {
			continue
		}
		if marker == nil || m.CreatedAt.After(*marker) {
			counts[m.ConversationID]++
		}
	}
	return counts, nil
}
