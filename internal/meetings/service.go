package meetings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peerlink-support/backend/internal/models"
	"github.com/peerlink-support/backend/internal/video"
)

// UserDirectory resolves users for helper validation and display names.
// FindByID returns (nil, nil) when the user does not exist.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Locker serializes cross-instance critical sections (per-seeker creation,
// sweep leadership). A nil Locker disables locking.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const createLockTTL = 5 * time.Second

// ClaimResult is a won claim: the accepted meeting plus the session
// credential admitting the claimant. Credential is nil when the issuer was
// unreachable; the meeting stays accepted and the credential can be
// re-requested for it.
type ClaimResult struct {
	Meeting    *models.Meeting
	Credential *video.Credential
}

// PendingMeeting is a pending specific meeting with the seeker's name
// resolved for display.
type PendingMeeting struct {
	models.Meeting
	SeekerName string `json:"seeker_name"`
}

// Service is the matchmaking engine. It is invoked concurrently by many
// request handlers and holds no state of its own; every race is resolved by
// the store's conditional transitions.
type Service struct {
	store          Store
	users          UserDirectory
	issuer         video.Issuer
	locks          Locker
	pendingTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates the matchmaking engine.
func NewService(store Store, users UserDirectory, issuer video.Issuer, locks Locker, pendingTimeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:          store,
		users:          users,
		issuer:         issuer,
		locks:          locks,
		pendingTimeout: pendingTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// Create opens a new meeting for the seeker, ending any meeting the seeker
// already has active (a seeker never has two simultaneous sessions). For
// specific meetings the named helper must exist, hold the helper role, and
// not be the seeker.
func (s *Service) Create(ctx context.Context, seekerID uuid.UUID, mtype models.MeetingType, helperID *uuid.UUID) (*models.Meeting, error) {
	m := &models.Meeting{SeekerID: seekerID, Type: mtype}

	switch mtype {
	case models.MeetingSpecific:
		if helperID == nil {
			return nil, validationErr("helper is required for specific meetings")
		}
		if *helperID == seekerID {
			return nil, validationErr("you cannot help yourself")
		}
		helper, err := s.users.FindByID(ctx, *helperID)
		if err != nil {
			return nil, fmt.Errorf("look up helper: %w", err)
		}
		if helper == nil {
			return nil, fmt.Errorf("helper: %w", ErrNotFound)
		}
		if helper.Role != models.RoleHelper {
			return nil, validationErr("specified user is not a helper")
		}
		m.HelperID = helperID
	case models.MeetingGlobal:
		if helperID != nil {
			return nil, validationErr("helper is not allowed for global meetings")
		}
	default:
		return nil, validationErr("invalid meeting type")
	}

	if s.locks != nil {
		key := "meeting:create:" + seekerID.String()
		ok, err := s.locks.Acquire(ctx, key, createLockTTL)
		if err != nil {
			s.logger.Warn("create lock unavailable", zap.Error(err))
		} else if !ok {
			return nil, fmt.Errorf("%w: creation already in progress", ErrConflict)
		} else {
			defer func() {
				if err := s.locks.Release(ctx, key); err != nil {
					s.logger.Warn("release create lock", zap.Error(err))
				}
			}()
		}
	}

	if err := s.supersedeActive(ctx, seekerID); err != nil {
		return nil, err
	}

	err := s.store.Create(ctx, m)
	if errors.Is(err, ErrSeekerHasActive) {
		// A concurrent create slipped in between supersession and insert;
		// end it and try once more.
		if err := s.supersedeActive(ctx, seekerID); err != nil {
			return nil, err
		}
		err = s.store.Create(ctx, m)
	}
	if errors.Is(err, ErrSeekerHasActive) {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("meeting created",
		zap.String("meeting_id", m.ID.String()),
		zap.String("seeker_id", seekerID.String()),
		zap.String("type", string(mtype)),
	)
	return m, nil
}

// supersedeActive forces any active meeting of the seeker to ended. A claim
// racing the first transition only changes the expected status, so retry
// once from the freshly observed state.
func (s *Service) supersedeActive(ctx context.Context, seekerID uuid.UUID) error {
	for attempt := 0; attempt < 2; attempt++ {
		prior, err := s.store.FindActiveBySeeker(ctx, seekerID)
		if err != nil {
			return err
		}
		if prior == nil {
			return nil
		}
		ok, err := s.store.TransitionStatus(ctx, prior.ID, prior.Status, models.StatusEnded, nil)
		if err != nil {
			return err
		}
		if ok {
			s.logger.Info("meeting superseded",
				zap.String("meeting_id", prior.ID.String()),
				zap.String("seeker_id", seekerID.String()),
			)
			return nil
		}
	}
	return fmt.Errorf("%w: could not supersede active meeting", ErrConflict)
}

// Get returns a meeting to one of its parties.
func (s *Service) Get(ctx context.Context, callerID, meetingID uuid.UUID) (*models.Meeting, error) {
	m, err := s.store.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !m.IsParty(callerID) {
		return nil, ErrForbidden
	}
	return m, nil
}

// PendingGlobal lists claimable global meetings, oldest first.
func (s *Service) PendingGlobal(ctx context.Context) ([]models.Meeting, error) {
	return s.store.ListPendingGlobal(ctx)
}

// PendingSpecific lists the helper's incoming requests with seeker names.
func (s *Service) PendingSpecific(ctx context.Context, helperID uuid.UUID) ([]PendingMeeting, error) {
	list, err := s.store.ListPendingSpecific(ctx, helperID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingMeeting, 0, len(list))
	for _, m := range list {
		pm := PendingMeeting{Meeting: m}
		if seeker, err := s.users.FindByID(ctx, m.SeekerID); err == nil && seeker != nil {
			pm.SeekerName = seeker.FullName()
		}
		out = append(out, pm)
	}
	return out, nil
}

// ClaimSpecific accepts a meeting directed at the calling helper. The
// conditional transition decides the race against timeouts and
// supersessions; a lost race reports the now-current state.
func (s *Service) ClaimSpecific(ctx context.Context, helperID, meetingID uuid.UUID) (*ClaimResult, error) {
	m, err := s.store.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Type != models.MeetingSpecific {
		return nil, validationErr("meeting is not specific")
	}
	if m.HelperID == nil || *m.HelperID != helperID {
		return nil, ErrForbidden
	}
	if err := s.ensureHelperFree(ctx, helperID); err != nil {
		return nil, err
	}
	if m.Status != models.StatusPending {
		return nil, statusConflict(m.Status)
	}
	if m.PendingExpired(s.pendingTimeout, s.now()) {
		s.expirePending(ctx, m.ID)
		return nil, ErrMeetingTimeout
	}

	ok, err := s.store.TransitionStatus(ctx, m.ID, models.StatusPending, models.StatusAccepted, &helperID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.lostClaim(ctx, m.ID)
	}
	return s.claimWon(ctx, m.ID, helperID)
}

// ClaimFirst accepts the oldest claimable global meeting. Concurrent helpers
// may race for the same candidate; the atomic transition picks exactly one
// winner per candidate and losers fall through to the next one rather than
// failing outright.
func (s *Service) ClaimFirst(ctx context.Context, helperID uuid.UUID) (*ClaimResult, error) {
	if err := s.ensureHelperFree(ctx, helperID); err != nil {
		return nil, err
	}
	candidates, err := s.store.ListPendingGlobal(ctx)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		c := &candidates[i]
		if c.PendingExpired(s.pendingTimeout, s.now()) {
			s.expirePending(ctx, c.ID)
			continue
		}
		ok, err := s.store.TransitionStatus(ctx, c.ID, models.StatusPending, models.StatusAccepted, &helperID)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.claimWon(ctx, c.ID, helperID)
		}
		// someone else won this candidate; try the next
	}
	return nil, ErrNoPending
}

// Reject declines a specific meeting directed at the calling helper.
func (s *Service) Reject(ctx context.Context, helperID, meetingID uuid.UUID) (*models.Meeting, error) {
	m, err := s.store.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Type != models.MeetingSpecific {
		return nil, validationErr("meeting is not specific")
	}
	if m.HelperID == nil || *m.HelperID != helperID {
		return nil, ErrForbidden
	}
	if m.Status != models.StatusPending {
		return nil, statusConflict(m.Status)
	}
	ok, err := s.store.TransitionStatus(ctx, m.ID, models.StatusPending, models.StatusRejected, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.lostClaim(ctx, m.ID)
	}
	s.logger.Info("meeting rejected", zap.String("meeting_id", m.ID.String()))
	return s.store.GetByID(ctx, m.ID)
}

// End terminates an accepted meeting at either participant's request.
func (s *Service) End(ctx context.Context, callerID, meetingID uuid.UUID) (*models.Meeting, error) {
	m, err := s.store.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !m.IsParty(callerID) {
		return nil, ErrForbidden
	}
	if m.Status != models.StatusAccepted {
		return nil, statusConflict(m.Status)
	}
	ok, err := s.store.TransitionStatus(ctx, m.ID, models.StatusAccepted, models.StatusEnded, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.lostClaim(ctx, m.ID)
	}
	s.logger.Info("meeting ended", zap.String("meeting_id", m.ID.String()))
	return s.store.GetByID(ctx, m.ID)
}

// Sweep demotes every pending meeting older than the timeout threshold.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.pendingTimeout)
	n, err := s.store.SweepPendingTimeouts(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pending meetings timed out", zap.Int("count", n))
	}
	return n, nil
}

// Credential re-issues a session credential for a live meeting the caller may
// join. This is also the recovery path when issuance failed after a claim.
func (s *Service) Credential(ctx context.Context, callerID uuid.UUID, callerRole models.Role, meetingID uuid.UUID) (*video.Credential, error) {
	m, err := s.store.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.StatusPending && m.PendingExpired(s.pendingTimeout, s.now()) {
		s.expirePending(ctx, m.ID)
		return nil, ErrMeetingTimeout
	}
	// Parties may always join; any helper may join a still-pending global
	// meeting (they are about to claim it).
	eligible := m.IsParty(callerID) ||
		(m.Type == models.MeetingGlobal && m.Status == models.StatusPending && callerRole == models.RoleHelper)
	if !eligible {
		return nil, ErrForbidden
	}
	if m.Status.Terminal() {
		return nil, statusConflict(m.Status)
	}
	cred, err := s.issuer.IssueToken(m.RoomName(), callerID.String())
	if err != nil {
		return nil, fmt.Errorf("issue session credential: %w", err)
	}
	return cred, nil
}

// ensureHelperFree enforces one accepted meeting per helper.
func (s *Service) ensureHelperFree(ctx context.Context, helperID uuid.UUID) error {
	active, err := s.store.FindActiveByHelper(ctx, helperID)
	if err != nil {
		return err
	}
	if active != nil {
		return ErrHelperBusy
	}
	return nil
}

// expirePending performs the claim-time Pending -> Timeout transition,
// best effort: losing this race just means someone else moved the record.
func (s *Service) expirePending(ctx context.Context, id uuid.UUID) {
	if _, err := s.store.TransitionStatus(ctx, id, models.StatusPending, models.StatusTimeout, nil); err != nil {
		s.logger.Warn("expire pending meeting", zap.String("meeting_id", id.String()), zap.Error(err))
	}
}

// lostClaim maps a lost conditional transition to the error describing the
// state that beat us.
func (s *Service) lostClaim(ctx context.Context, id uuid.UUID) error {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.Status == models.StatusTimeout {
		return ErrMeetingTimeout
	}
	return statusConflict(m.Status)
}

// claimWon finalizes a successful claim: reload the record and issue the
// session credential. Issuer failure does not roll the acceptance back; the
// credential is re-requested for the already-accepted meeting instead.
func (s *Service) claimWon(ctx context.Context, meetingID, helperID uuid.UUID) (*ClaimResult, error) {
	m, err := s.store.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("meeting claimed",
		zap.String("meeting_id", m.ID.String()),
		zap.String("helper_id", helperID.String()),
	)
	cred, err := s.issuer.IssueToken(m.RoomName(), helperID.String())
	if err != nil {
		s.logger.Error("credential issuance failed after claim",
			zap.String("meeting_id", m.ID.String()),
			zap.Error(err),
		)
		return &ClaimResult{Meeting: m}, nil
	}
	return &ClaimResult{Meeting: m, Credential: cred}, nil
}

func statusConflict(status models.MeetingStatus) error {
	switch status {
	case models.StatusAccepted:
		return fmt.Errorf("%w: meeting has already been accepted", ErrConflict)
	case models.StatusRejected:
		return fmt.Errorf("%w: meeting has been rejected", ErrConflict)
	case models.StatusEnded:
		return fmt.Errorf("%w: meeting has ended", ErrConflict)
	case models.StatusTimeout:
		return ErrMeetingTimeout
	case models.StatusPending:
		return fmt.Errorf("%w: meeting has not been accepted", ErrConflict)
	}
	return ErrConflict
}
