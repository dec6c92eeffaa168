package message

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	me, other := uuid.New(), uuid.New()

	t.Run("direct", func(t *testing.T) {
		c := NewConversation("", me, []uuid.UUID{other, me, other})
		require.NoError(t, c.Validate())
		assert.False(t, c.IsGroup)
		assert.Equal(t, []uuid.UUID{me, other}, c.ParticipantIDs())
		assert.True(t, c.HasParticipant(other))
		assert.NotNil(t, c.Participants[0].LastReadAt)
		assert.Nil(t, c.Participants[1].LastReadAt)
	})

	t.Run("alone", func(t *testing.T) {
		c := NewConversation("", me, []uuid.UUID{me})
		assert.Error(t, c.Validate())
	})

	t.Run("group needs title", func(t *testing.T) {
		c := NewConversation("", me, []uuid.UUID{other, uuid.New()})
		assert.True(t, c.IsGroup)
		assert.Error(t, c.Validate())
		c.Title = "Board"
		assert.NoError(t, c.Validate())
	})
}

func TestMessageValidate(t *testing.T) {
	m := NewMessage(uuid.New(), uuid.New(), "   ")
	assert.ErrorIs(t, m.Validate(), ErrEmptyMessage)

	m.Attachments = []Attachment{*NewAttachment(m.ConversationID, m.ID, "a.pdf", "application/pdf", 10)}
	assert.NoError(t, m.Validate())

	m.Content = strings.Repeat("x", MaxContentLength+1)
	assert.Error(t, m.Validate())
}

func TestNewAttachment(t *testing.T) {
	conv, msg := uuid.New(), uuid.New()
	a := NewAttachment(conv, msg, `C:\Users\me\report.pdf`, "", 42)

	assert.Equal(t, "report.pdf", a.FileName)
	assert.Equal(t, "application/octet-stream", a.ContentType)
	assert.Equal(t, "conversations/"+conv.String()+"/"+msg.String()+"/"+a.ID.String(), a.ObjectKey)
}
