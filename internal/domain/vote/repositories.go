package vote

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows vote listings
type Filter struct {
	Status Status
}

// Repository persists votes, options and ballots
type Repository interface {
	// Create stores the vote and its options atomically
	Create(ctx context.Context, v *Vote) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vote, error)
	List(ctx context.Context, filter Filter) ([]*Vote, error)
	// Update stores vote fields; options are replaced when replaceOptions is set
	Update(ctx context.Context, v *Vote, replaceOptions bool) error
	Delete(ctx context.Context, id uuid.UUID) error

	// CastBallot stores every response of a ballot in one transaction and
	// fails with ErrAlreadyVoted when the profile has any response already
	CastBallot(ctx context.Context, voteID, profileID uuid.UUID, optionIDs []uuid.UUID) ([]*Response, error)
	ListResponses(ctx context.Context, voteID uuid.UUID) ([]*Response, error)
	ListBallot(ctx context.Context, voteID, profileID uuid.UUID) ([]*Response, error)
}
