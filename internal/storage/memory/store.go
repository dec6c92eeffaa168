// Package memory implements every repository in process memory. It backs the
// development mode and the service and handler tests.
package memory

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/domain/message"
	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/project"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/realtime"
)

// Store keeps all tables behind one mutex, so every multi-row write is atomic.
// Values are copied in and out; callers never share memory with the store.
type Store struct {
	mu        sync.RWMutex
	publisher realtime.Publisher
	log       *log.Logger

	profiles map[uuid.UUID]profile.Profile
	sessions map[uuid.UUID]profile.Session

	events            map[uuid.UUID]event.Event
	eventParticipants map[uuid.UUID]map[uuid.UUID]event.Participant

	permanences            map[uuid.UUID]permanence.Permanence
	permanenceParticipants map[uuid.UUID]map[uuid.UUID]permanence.Participant

	votes     map[uuid.UUID]vote.Vote
	responses map[uuid.UUID][]vote.Response

	projects       map[uuid.UUID]project.Project
	projectMembers map[uuid.UUID]map[uuid.UUID]project.Member

	notes         map[uuid.UUID]note.Note
	announcements map[uuid.UUID]announcement.Announcement

	conversations            map[uuid.UUID]message.Conversation
	conversationParticipants map[uuid.UUID]map[uuid.UUID]message.Participant
	messages                 map[uuid.UUID]message.Message
	attachments              map[uuid.UUID]message.Attachment
}

// New creates an empty store. Committed writes are published to publisher when it is not nil.
func New(publisher realtime.Publisher) *Store {
	return &Store{
		publisher: publisher,
		log:       logger.Repository("memory"),

		profiles:                 make(map[uuid.UUID]profile.Profile),
		sessions:                 make(map[uuid.UUID]profile.Session),
		events:                   make(map[uuid.UUID]event.Event),
		eventParticipants:        make(map[uuid.UUID]map[uuid.UUID]event.Participant),
		permanences:              make(map[uuid.UUID]permanence.Permanence),
		permanenceParticipants:   make(map[uuid.UUID]map[uuid.UUID]permanence.Participant),
		votes:                    make(map[uuid.UUID]vote.Vote),
		responses:                make(map[uuid.UUID][]vote.Response),
		projects:                 make(map[uuid.UUID]project.Project),
		projectMembers:           make(map[uuid.UUID]map[uuid.UUID]project.Member),
		notes:                    make(map[uuid.UUID]note.Note),
		announcements:            make(map[uuid.UUID]announcement.Announcement),
		conversations:            make(map[uuid.UUID]message.Conversation),
		conversationParticipants: make(map[uuid.UUID]map[uuid.UUID]message.Participant),
		messages:                 make(map[uuid.UUID]message.Message),
		attachments:              make(map[uuid.UUID]message.Attachment),
	}
}

func (s *Store) Profiles() profile.Repository           { return &profileRepository{s} }
func (s *Store) Events() event.Repository               { return &eventRepository{s} }
func (s *Store) Permanences() permanence.Repository     { return &permanenceRepository{s} }
func (s *Store) Votes() vote.Repository                 { return &voteRepository{s} }
func (s *Store) Projects() project.Repository           { return &projectRepository{s} }
func (s *Store) Notes() note.Repository                 { return &noteRepository{s} }
func (s *Store) Announcements() announcement.Repository { return &announcementRepository{s} }
func (s *Store) Messages() message.Repository           { return &messageRepository{s} }

// Health always succeeds unless ctx is done
func (s *Store) Health(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *Store) Close() error {
	s.log.Info("Memory store closed")
	return nil
}

// emit publishes a change for row. Callers hold the write lock so changes are
// published in commit order.
func (s *Store) emit(table string, action realtime.Action, row any) {
	if s.publisher == nil {
		return
	}
	c, err := realtime.NewChange(table, action, row)
	if err != nil {
		s.log.Warn("Failed to build change", "table", table, "error", err)
		return
	}
	s.publisher.Publish(c)
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
