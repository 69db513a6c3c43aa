package meetings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peerlink-support/backend/internal/models"
)

// memStore is an in-memory Store with the same atomicity contract as the
// PostgreSQL repository, used to exercise the engine's races in-process.
type memStore struct {
	mu       sync.Mutex
	meetings map[uuid.UUID]*models.Meeting
}

func newMemStore() *memStore {
	return &memStore{meetings: make(map[uuid.UUID]*models.Meeting)}
}

var _ Store = (*memStore)(nil)

func (s *memStore) Create(_ context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.meetings {
		if existing.SeekerID == m.SeekerID &&
			(existing.Status == models.StatusPending || existing.Status == models.StatusAccepted) {
			return ErrSeekerHasActive
		}
	}
	m.ID = uuid.New()
	m.Status = models.StatusPending
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	s.meetings[m.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) FindActiveBySeeker(_ context.Context, seekerID uuid.UUID) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meetings {
		if m.SeekerID == seekerID && (m.Status == models.StatusPending || m.Status == models.StatusAccepted) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindActiveByHelper(_ context.Context, helperID uuid.UUID) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meetings {
		if m.Status == models.StatusAccepted && m.HelperID != nil && *m.HelperID == helperID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListPendingGlobal(_ context.Context) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Meeting
	for _, m := range s.meetings {
		if m.Status == models.StatusPending && m.Type == models.MeetingGlobal {
			list = append(list, *m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (s *memStore) ListPendingSpecific(_ context.Context, helperID uuid.UUID) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Meeting
	for _, m := range s.meetings {
		if m.Status == models.StatusPending && m.Type == models.MeetingSpecific &&
			m.HelperID != nil && *m.HelperID == helperID {
			list = append(list, *m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (s *memStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.MeetingStatus, helperID *uuid.UUID) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, ErrInvalidTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.Status != from {
		return false, nil
	}
	if to == models.StatusAccepted && helperID != nil {
		for _, other := range s.meetings {
			if other.ID != id && other.Status == models.StatusAccepted &&
				other.HelperID != nil && *other.HelperID == *helperID {
				return false, ErrHelperBusy
			}
		}
	}
	m.Status = to
	if helperID != nil && m.HelperID == nil {
		m.HelperID = helperID
	}
	now := time.Now()
	if to == models.StatusAccepted && m.AcceptedAt == nil {
		m.AcceptedAt = &now
	}
	if to == models.StatusEnded && m.EndedAt == nil {
		m.EndedAt = &now
	}
	return true, nil
}

func (s *memStore) SweepPendingTimeouts(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	var expired []uuid.UUID
	for _, m := range s.meetings {
		if m.Status == models.StatusPending && !m.CreatedAt.After(cutoff) {
			expired = append(expired, m.ID)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range expired {
		ok, err := s.TransitionStatus(ctx, id, models.StatusPending, models.StatusTimeout, nil)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// backdate rewrites a meeting's creation time to simulate waiting.
func (s *memStore) backdate(id uuid.UUID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.meetings[id]; ok {
		m.CreatedAt = m.CreatedAt.Add(-d)
	}
}
