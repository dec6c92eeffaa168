package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/logger"
)

const defaultMessagePage = 50

// PostgresMessageRepository implements message.Repository using GORM
type PostgresMessageRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresMessageRepository creates a new PostgreSQL messaging repository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{
		db:  db,
		log: logger.Repository("message"),
	}
}

func conversationWithParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC, profile_id ASC")
	})
}

// creatorFirst moves the creator to the head of the participant list
func creatorFirst(c *message.Conversation) {
	sort.SliceStable(c.Participants, func(i, j int) bool {
		return c.Participants[i].ProfileID == c.CreatedBy && c.Participants[j].ProfileID != c.CreatedBy
	})
}

func preloadAttachments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (r *PostgresMessageRepository) CreateConversation(ctx context.Context, c *message.Conversation) error {
	r.log.Debug("Creating conversation", "created_by", c.CreatedBy, "participants", len(c.Participants))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		for i := range c.Participants {
			c.Participants[i].ConversationID = c.ID
			if c.Participants[i].JoinedAt.IsZero() {
				c.Participants[i].JoinedAt = c.CreatedAt
			}
		}
		if len(c.Participants) == 0 {
			return nil
		}
		return tx.Create(&c.Participants).Error
	})
	if err != nil {
		r.log.Error("Failed to create conversation", "created_by", c.CreatedBy, "error", err)
		return fmt.Errorf("failed to create conversation: %w", translate(err, message.ErrConversationNotFound))
	}

	r.log.Info("Conversation created successfully", "id", c.ID, "group", c.IsGroup)
	return nil
}

func (r *PostgresMessageRepository) GetConversation(ctx context.Context, id uuid.UUID) (*message.Conversation, error) {
	var c message.Conversation
	if err := conversationWithParticipants(r.db.WithContext(ctx)).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, message.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	creatorFirst(&c)
	return &c, nil
}

// FindDirect looks for a non-group conversation whose only participants are a and b
func (r *PostgresMessageRepository) FindDirect(ctx context.Context, a, b uuid.UUID) (*message.Conversation, error) {
	var c message.Conversation
	err := conversationWithParticipants(r.db.WithContext(ctx)).
		Where("is_group = ?", false).
		Where(`id IN (
			SELECT conversation_id FROM conversation_participants
			GROUP BY conversation_id
			HAVING COUNT(*) = 2
			   AND bool_or(profile_id = ?)
			   AND bool_or(profile_id = ?)
		)`, a, b).
		Order("created_at ASC").
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, message.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to find direct conversation: %w", err)
	}
	creatorFirst(&c)
	return &c, nil
}

// ListConversations orders by latest activity first
func (r *PostgresMessageRepository) ListConversations(ctx context.Context, profileID uuid.UUID) ([]*message.Conversation, error) {
	conversations := []*message.Conversation{}
	err := conversationWithParticipants(r.db.WithContext(ctx)).
		Where("id IN (SELECT conversation_id FROM conversation_participants WHERE profile_id = ?)", profileID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&conversations).Error
	if err != nil {
		r.log.Error("Failed to list conversations", "profile_id", profileID, "error", err)
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	for _, c := range conversations {
		creatorFirst(c)
	}
	return conversations, nil
}

// SendMessage stores the message and its attachments, bumps the
// conversation activity and advances the sender's read marker
func (r *PostgresMessageRepository) SendMessage(ctx context.Context, m *message.Message) error {
	r.log.Debug("Sending message", "conversation_id", m.ConversationID, "sender_id", m.SenderID, "attachments", len(m.Attachments))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &message.Conversation{}, m.ConversationID, message.ErrConversationNotFound); err != nil {
			return err
		}
		var member int64
		if err := tx.Model(&message.Participant{}).
			Where("conversation_id = ? AND profile_id = ?", m.ConversationID, m.SenderID).
			Count(&member).Error; err != nil {
			return err
		}
		if member == 0 {
			return message.ErrNotParticipant
		}

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return err
		}
		for i := range m.Attachments {
			m.Attachments[i].MessageID = m.ID
		}
		if len(m.Attachments) > 0 {
			if err := tx.Create(&m.Attachments).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&message.Conversation{}).Where("id = ?", m.ConversationID).Updates(map[string]any{
			"last_message_at": m.CreatedAt,
			"updated_at":      time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&message.Participant{}).
			Where("conversation_id = ? AND profile_id = ?", m.ConversationID, m.SenderID).
			Update("last_read_at", m.CreatedAt).Error
	})
	if err != nil {
		if errors.Is(err, message.ErrNotParticipant) || errors.Is(err, message.ErrConversationNotFound) {
			return err
		}
		r.log.Error("Failed to send message", "conversation_id", m.ConversationID, "error", err)
		return fmt.Errorf("failed to send message: %w", translate(err, message.ErrConversationNotFound))
	}

	r.log.Info("Message sent", "id", m.ID, "conversation_id", m.ConversationID)
	return nil
}

func (r *PostgresMessageRepository) GetMessage(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	var m message.Message
	if err := r.db.WithContext(ctx).Preload("Attachments", preloadAttachments).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, message.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &m, nil
}

// ListMessages returns messages older than q.Before, newest first
func (r *PostgresMessageRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, q message.PageQuery) ([]*message.Message, error) {
	db := r.db.WithContext(ctx)
	if err := exists(db, &message.Conversation{}, conversationID, message.ErrConversationNotFound); err != nil {
		return nil, err
	}

	query := db.Where("conversation_id = ?", conversationID)
	if !q.Before.IsZero() {
		query = query.Where("created_at < ?", q.Before)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultMessagePage
	}

	messages := []*message.Message{}
	if err := query.Preload("Attachments", preloadAttachments).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		r.log.Error("Failed to list messages", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// LastMessage returns nil when the conversation has no messages
func (r *PostgresMessageRepository) LastMessage(ctx context.Context, conversationID uuid.UUID) (*message.Message, error) {
	msgs, err := r.ListMessages(ctx, conversationID, message.PageQuery{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

func (r *PostgresMessageRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*message.Attachment, error) {
	var a message.Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, message.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &a, nil
}

// MarkRead moves the read marker forward; it never moves back
func (r *PostgresMessageRepository) MarkRead(ctx context.Context, conversationID, profileID uuid.UUID, at time.Time) error {
	db := r.db.WithContext(ctx)
	if err := exists(db, &message.Conversation{}, conversationID, message.ErrConversationNotFound); err != nil {
		return err
	}

	var member int64
	if err := db.Model(&message.Participant{}).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		Count(&member).Error; err != nil {
		return fmt.Errorf("failed to look up participant: %w", err)
	}
	if member == 0 {
		return message.ErrNotParticipant
	}

	if err := db.Model(&message.Participant{}).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		Where("last_read_at IS NULL OR last_read_at < ?", at).
		Update("last_read_at", at).Error; err != nil {
		r.log.Error("Failed to mark conversation read", "conversation_id", conversationID, "error", err)
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return nil
}

type unreadRow struct {
	ConversationID uuid.UUID
	Unread         int
}

func (r *PostgresMessageRepository) UnreadCounts(ctx context.Context, profileID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []unreadRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT cp.conversation_id, COUNT(m.id) AS unread
		FROM conversation_participants cp
		LEFT JOIN messages m
		  ON m.conversation_id = cp.conversation_id
		 AND m.sender_id <> cp.profile_id
		 AND (cp.last_read_at IS NULL OR m.created_at > cp.last_read_at)
		WHERE cp.profile_id = ?
		GROUP BY cp.conversation_id`, profileID).Scan(&rows).Error
	if err != nil {
		r.log.Error("Failed to count unread messages", "profile_id", profileID, "error", err)
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Unread
	}
	return counts, nil
}
