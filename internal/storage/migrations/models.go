package migrations

import (
	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/domain/vote"
)

// AllModels returns every persisted model in dependency order
func AllModels() []any {
	return []any{
		&profile.Profile{},
		&profile.Session{},
		&event.Event{},
		&event.Participant{},
		&permanence.Permanence{},
		&permanence.Participant{},
		&vote.Vote{},
		&vote.Option{},
		&vote.Response{},
		&project.Project{},
		&project.Member{},
		&note.Note{},
		&announcement.Announcement{},
		&message.Conversation{},
		&message.Participant{},
		&message.Message{},
		&message.Attachment{},
	}
}

// Tables lists the table names of AllModels in the same order
func Tables() []string {
	return []string{
		"profiles",
		"sessions",
		"events",
		"event_participants",
		"permanences",
		"permanence_participants",
		"votes",
		"vote_options",
		"vote_responses",
		"projects",
		"project_members",
		"notes",
		"announcements",
		"conversations",
		"conversation_participants",
		"messages",
		"message_attachments",
	}
}

// NotifiedTables are the tables whose row changes are broadcast. Sessions are never broadcast.
func NotifiedTables() []string {
	tables := make([]string, 0, len(Tables()))
	for _, t := range Tables() {
		if t != "sessions" {
			tables = append(tables, t)
		}
	}
	return tables
}
