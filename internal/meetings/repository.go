package meetings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peerlink-support/backend/internal/models"
)

const meetingColumns = `id, seeker_id, type, helper_id, status, created_at, accepted_at, ended_at`

// Repository is the PostgreSQL-backed meeting store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meeting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// Create inserts a new pending meeting.
func (r *Repository) Create(ctx context.Context, m *models.Meeting) error {
	const q = `INSERT INTO meetings (id, seeker_id, type, helper_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 'pending')
		RETURNING id, status, created_at`
	err := r.pool.QueryRow(ctx, q, m.SeekerID, m.Type, m.HelperID).
		Scan(&m.ID, &m.Status, &m.CreatedAt)
	if isUniqueViolation(err, "meetings_one_active_per_seeker") {
		return ErrSeekerHasActive
	}
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// GetByID returns a meeting by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	m, err := scanMeeting(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// FindActiveBySeeker returns the seeker's pending or accepted meeting, if any.
func (r *Repository) FindActiveBySeeker(ctx context.Context, seekerID uuid.UUID) (*models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE seeker_id = $1 AND status IN ('pending', 'accepted') LIMIT 1`
	m, err := scanMeeting(r.pool.QueryRow(ctx, q, seekerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active by seeker: %w", err)
	}
	return m, nil
}

// FindActiveByHelper returns the helper's accepted meeting, if any.
func (r *Repository) FindActiveByHelper(ctx context.Context, helperID uuid.UUID) (*models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE helper_id = $1 AND status = 'accepted' LIMIT 1`
	m, err := scanMeeting(r.pool.QueryRow(ctx, q, helperID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active by helper: %w", err)
	}
	return m, nil
}

// ListPendingGlobal returns pending global meetings, oldest first so the
// longest-waiting seeker is claimed first.
func (r *Repository) ListPendingGlobal(ctx context.Context) ([]models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE status = 'pending' AND type = 'global' ORDER BY created_at ASC`
	return r.listMeetings(ctx, q)
}

// ListPendingSpecific returns pending meetings directed at the helper.
func (r *Repository) ListPendingSpecific(ctx context.Context, helperID uuid.UUID) ([]models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE status = 'pending' AND type = 'specific' AND helper_id = $1 ORDER BY created_at ASC`
	return r.listMeetings(ctx, q, helperID)
}

// TransitionStatus performs the atomic check-and-set on a meeting's status.
// The WHERE clause carries the expected status, so the database applies the
// guard and the write as one operation; rows-affected tells us who won.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.MeetingStatus, helperID *uuid.UUID) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	const q = `UPDATE meetings SET
			status = $3,
			helper_id = COALESCE($4, helper_id),
			accepted_at = CASE WHEN $3 = 'accepted' AND accepted_at IS NULL THEN now() ELSE accepted_at END,
			ended_at    = CASE WHEN $3 = 'ended'    AND ended_at    IS NULL THEN now() ELSE ended_at    END
		WHERE id = $1 AND status = $2`
	tag, err := r.pool.Exec(ctx, q, id, from, to, helperID)
	if isUniqueViolation(err, "meetings_one_accepted_per_helper") {
		return false, ErrHelperBusy
	}
	if err != nil {
		return false, fmt.Errorf("transition meeting: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SweepPendingTimeouts demotes expired pending meetings to timeout. The
// status guard in the WHERE clause is checked per row under the row lock, so
// this is the same check-and-set as TransitionStatus, applied set-wide.
func (r *Repository) SweepPendingTimeouts(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `UPDATE meetings SET status = 'timeout'
		WHERE status = 'pending' AND created_at <= $1`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep pending timeouts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) listMeetings(ctx context.Context, q string, args ...interface{}) ([]models.Meeting, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var list []models.Meeting
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.SeekerID, &m.Type, &m.HelperID, &m.Status, &m.CreatedAt, &m.AcceptedAt, &m.EndedAt); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(&m.ID, &m.SeekerID, &m.Type, &m.HelperID, &m.Status, &m.CreatedAt, &m.AcceptedAt, &m.EndedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
