package meetings

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/peerlink-support/backend/internal/models"
)

// Store is the durable record of every meeting; it is the single shared
// mutable resource, so all coordination between concurrent claims, sweeps and
// supersessions is expressed through it. Status is only ever mutated through
// TransitionStatus, never by unconditional overwrite.
type Store interface {
	// Create inserts a pending meeting, assigning ID and CreatedAt.
	// Returns ErrSeekerHasActive if the seeker already has a pending or
	// accepted meeting.
	Create(ctx context.Context, m *models.Meeting) error

	// GetByID returns the meeting or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)

	// FindActiveBySeeker returns the seeker's pending or accepted meeting,
	// or (nil, nil) when there is none.
	FindActiveBySeeker(ctx context.Context, seekerID uuid.UUID) (*models.Meeting, error)

	// FindActiveByHelper returns the helper's accepted meeting, or (nil, nil).
	FindActiveByHelper(ctx context.Context, helperID uuid.UUID) (*models.Meeting, error)

	// ListPendingGlobal returns pending global meetings oldest first.
	ListPendingGlobal(ctx context.Context) ([]models.Meeting, error)

	// ListPendingSpecific returns pending meetings directed at the helper.
	ListPendingSpecific(ctx context.Context, helperID uuid.UUID) ([]models.Meeting, error)

	// TransitionStatus atomically moves the meeting from one status to
	// another: the status check and the write are a single operation with no
	// read-then-write window. It returns (true, nil) iff it performed the
	// transition and (false, nil) when the record's status no longer equals
	// from — that is not an error, the loser simply observes it lost.
	// Entering accepted records helperID (when given) and stamps AcceptedAt;
	// entering ended stamps EndedAt; stamps are never overwritten.
	// Returns ErrHelperBusy when accepting would give the helper a second
	// accepted meeting, and ErrInvalidTransition for an illegal from/to pair.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.MeetingStatus, helperID *uuid.UUID) (bool, error)

	// SweepPendingTimeouts moves every pending meeting created at or before
	// cutoff to timeout, returning how many records it transitioned. Each
	// record's check-and-set is atomic, so a sweep never overwrites a claim
	// that just won.
	SweepPendingTimeouts(ctx context.Context, cutoff time.Time) (int, error)
}
