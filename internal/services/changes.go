package services

import (
	"context"
	"slices"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/realtime"
)

// publicTables can be followed by any signed-in member. Profiles, notes,
// messaging and ballots have dedicated endpoints with their own checks.
// Members never receive changes of draft votes.
var publicTables = []string{
	"events",
	"event_participants",
	"permanences",
	"permanence_participants",
	"votes",
	"projects",
	"project_members",
	"announcements",
}

// staffTables can only be followed by staff. Options change while a vote is a draft.
var staffTables = []string{
	"vote_options",
}

var (
	ErrTableNotFollowable = common.Kind(common.ErrInvalid, "changes of this table cannot be followed")
)

// ChangeFeedService exposes row changes of shared tables
type ChangeFeedService struct {
	hub Subscriber
}

// NewChangeFeedService creates a new change feed service
func NewChangeFeedService(hub Subscriber) *ChangeFeedService {
	return &ChangeFeedService{hub: hub}
}

// Tables returns the tables the actor can follow
func (s *ChangeFeedService) Tables(actor common.Actor) []string {
	tables := slices.Clone(publicTables)
	if actor.IsStaff() {
		tables = append(tables, staffTables...)
	}
	return tables
}

// Follow subscribes to changes of a table the actor can follow, optionally
// narrowed by a column value
func (s *ChangeFeedService) Follow(ctx context.Context, actor common.Actor, table, column, value string) (*realtime.Subscription, error) {
	if !slices.Contains(s.Tables(actor), table) {
		return nil, ErrTableNotFollowable
	}
	if column == "" && value != "" {
		return nil, common.NewValidationError("column", "is required when value is set")
	}

	filter := realtime.Filter{Table: table, Column: column, Value: value}
	if table == "votes" && !actor.IsStaff() {
		filter.Except = []realtime.Condition{{Column: "status", Value: string(vote.StatusDraft)}}
	}
	return s.hub.Subscribe(ctx, filter), nil
}
