package message

import (
	"context"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

var (
	ErrConversationNotFound = common.Kind(common.ErrNotFound, "conversation not found")
	ErrMessageNotFound      = common.Kind(common.ErrNotFound, "message not found")
	ErrAttachmentNotFound   = common.Kind(common.ErrNotFound, "attachment not found")
	ErrNotParticipant       = common.Kind(common.ErrForbidden, "profile is not a participant of this conversation")
	ErrEmptyMessage         = common.Kind(common.ErrInvalid, "message needs content or at least one attachment")
	ErrFileTooLarge         = common.Kind(common.ErrInvalid, "attachment exceeds the maximum file size")
)

// MaxContentLength bounds the text of a single message
const MaxContentLength = 10000

// Conversation groups messages exchanged between participants
type Conversation struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title         string     `json:"title"`
	IsGroup       bool       `json:"is_group" gorm:"not null;default:false"`
	CreatedBy     uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	LastMessageAt *time.Time `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// Participant is a member of a conversation with its read marker
type Participant struct {
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;primaryKey"`
	ProfileID      uuid.UUID  `json:"profile_id" gorm:"type:uuid;primaryKey;index"`
	JoinedAt       time.Time  `json:"joined_at" gorm:"not null"`
	LastReadAt     *time.Time `json:"last_read_at"`
}

// Message is a single entry of a conversation
type Message struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       uuid.UUID  `json:"sender_id" gorm:"type:uuid;not null"`
	Content        string     `json:"content" gorm:"type:text"`
	EditedAt       *time.Time `json:"edited_at"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null;index:idx_messages_conversation_created,priority:2"`

	Attachments []Attachment `json:"attachments,omitempty" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// Attachment describes a file stored in the object store for a message
type Attachment struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	MessageID   uuid.UUID `json:"message_id" gorm:"type:uuid;not null;index"`
	FileName    string    `json:"file_name" gorm:"not null"`
	ContentType string    `json:"content_type" gorm:"not null"`
	Size        int64     `json:"size" gorm:"not null"`
	ObjectKey   string    `json:"-" gorm:"not null;uniqueIndex"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Conversation) TableName() string { return "conversations" }
func (Participant) TableName() string  { return "conversation_participants" }
func (Message) TableName() string      { return "messages" }
func (Attachment) TableName() string   { return "message_attachments" }

// BeforeCreate sets a UUID before creating the record
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NewConversation creates a conversation between the creator and the given members.
// The creator is always a participant and member ids are deduplicated.
func NewConversation(title string, createdBy uuid.UUID, members []uuid.UUID) *Conversation {
	now := time.Now()
	ids := []uuid.UUID{createdBy}
	for _, id := range members {
		if id != uuid.Nil && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	c := &Conversation{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(title),
		IsGroup:   len(ids) > 2,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range ids {
		p := Participant{ConversationID: c.ID, ProfileID: id, JoinedAt: now}
		if id == createdBy {
			p.LastReadAt = &now
		}
		c.Participants = append(c.Participants, p)
	}
	return c
}

// Validate checks if the conversation data is valid
func (c *Conversation) Validate() error {
	if c.CreatedBy == uuid.Nil {
		return common.NewValidationError("created_by", "is required")
	}
	if len(c.Participants) < 2 {
		return common.NewValidationError("participant_ids", "a conversation needs at least one other participant")
	}
	if c.IsGroup && c.Title == "" {
		return common.NewValidationError("title", "is required for group conversations")
	}
	return nil
}

// ParticipantIDs returns the profile ids of all participants
func (c *Conversation) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.ProfileID)
	}
	return ids
}

// HasParticipant reports whether the profile takes part in the conversation
func (c *Conversation) HasParticipant(profileID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.ProfileID == profileID {
			return true
		}
	}
	return false
}

// NewMessage creates a message sent now
func NewMessage(conversationID, senderID uuid.UUID, content string) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        strings.TrimSpace(content),
		CreatedAt:      time.Now(),
	}
}

// Validate checks if the message data is valid
func (m *Message) Validate() error {
	if m.Content == "" && len(m.Attachments) == 0 {
		return ErrEmptyMessage
	}
	if len(m.Content) > MaxContentLength {
		return common.NewValidationError("content", "is too long")
	}
	return nil
}

// NewAttachment creates the metadata of an uploaded file and derives its object key
func NewAttachment(conversationID, messageID uuid.UUID, fileName, contentType string, size int64) *Attachment {
	a := &Attachment{
		ID:          uuid.New(),
		MessageID:   messageID,
		FileName:    path.Base(strings.ReplaceAll(fileName, "\\", "/")),
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now(),
	}
	if a.ContentType == "" {
		a.ContentType = "application/octet-stream"
	}
	a.ObjectKey = path.Join("conversations", conversationID.String(), messageID.String(), a.ID.String())
	return a
}

// Summary is a conversation listing entry for one profile
type Summary struct {
	Conversation *Conversation `json:"conversation"`
	LastMessage  *Message      `json:"last_message,omitempty"`
	Unread       int           `json:"unread"`
}

// PageQuery selects messages older than Before, newest first
type PageQuery struct {
	Before time.Time
	Limit  int
}

// Repository persists conversations, messages and attachments
type Repository interface {
	// CreateConversation stores the conversation and its participants atomically
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	// FindDirect returns the non-group conversation between exactly a and b
	FindDirect(ctx context.Context, a, b uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, profileID uuid.UUID) ([]*Conversation, error)

	// SendMessage stores the message, its attachments and bumps the conversation atomically
	SendMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, q PageQuery) ([]*Message, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*Message, error)
	GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error)

	MarkRead(ctx context.Context, conversationID, profileID uuid.UUID, at time.Time) error
	// UnreadCounts returns, per conversation of the profile, messages from others newer than its read marker
	UnreadCounts(ctx context.Context, profileID uuid.UUID) (map[uuid.UUID]int, error)
}
