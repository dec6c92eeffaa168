// Package services holds the portal business logic. Services check
// permissions for the calling actor and delegate persistence to the domain
// repositories.
package services

import (
	"context"
	"time"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/storage"
	"github.com/gravadigital/community-portal/internal/storage/objects"
)

var (
	// ErrStaffOnly is returned when a member attempts a coordinator action
	ErrStaffOnly = common.Kind(common.ErrForbidden, "only coordinators and admins can do this")
	// ErrAdminOnly is returned when a non admin attempts an admin action
	ErrAdminOnly = common.Kind(common.ErrForbidden, "only admins can do this")
)

// Subscriber opens filtered change subscriptions
type Subscriber interface {
	Subscribe(ctx context.Context, filter realtime.Filter) *realtime.Subscription
}

// Clock returns the current time
type Clock func() time.Time

func requireStaff(actor common.Actor) error {
	if !actor.IsStaff() {
		return ErrStaffOnly
	}
	return nil
}

// Services bundles every service of the portal
type Services struct {
	Auth          *AuthService
	Profiles      *ProfileService
	Events        *EventService
	Permanences   *PermanenceService
	Votes         *VoteService
	Projects      *ProjectService
	Notes         *NoteService
	Announcements *AnnouncementService
	Messaging     *MessagingService
	Changes       *ChangeFeedService
}

// New wires the services on top of a storage container
func New(cfg *config.Config, container storage.Container, hub Subscriber, blobs objects.Store) *Services {
	return &Services{
		Auth:          NewAuthService(container.Profiles(), cfg),
		Profiles:      NewProfileService(container.Profiles(), cfg.Auth.BcryptCost),
		Events:        NewEventService(container.Events()),
		Permanences:   NewPermanenceService(container.Permanences(), container.Profiles()),
		Votes:         NewVoteService(container.Votes()),
		Projects:      NewProjectService(container.Projects(), container.Profiles()),
		Notes:         NewNoteService(container.Notes(), container.Projects()),
		Announcements: NewAnnouncementService(container.Announcements()),
		Messaging:     NewMessagingService(container.Messages(), container.Profiles(), blobs, hub, cfg),
		Changes:       NewChangeFeedService(hub),
	}
}
