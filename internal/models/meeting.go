package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingType distinguishes open requests from requests aimed at one helper.
type MeetingType string

const (
	// MeetingGlobal is an open request any helper may claim.
	MeetingGlobal MeetingType = "global"
	// MeetingSpecific is a request directed at one named helper.
	MeetingSpecific MeetingType = "specific"
)

// ValidMeetingType reports whether s names a known meeting type.
func ValidMeetingType(s string) bool {
	return s == string(MeetingGlobal) || s == string(MeetingSpecific)
}

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	StatusPending  MeetingStatus = "pending"
	StatusAccepted MeetingStatus = "accepted"
	StatusEnded    MeetingStatus = "ended"
	StatusRejected MeetingStatus = "rejected"
	StatusTimeout  MeetingStatus = "timeout"
)

// Terminal reports whether no further transition is allowed from s.
func (s MeetingStatus) Terminal() bool {
	switch s {
	case StatusEnded, StatusRejected, StatusTimeout:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal status transition.
// Pending may move to any of accepted, ended, rejected, timeout; accepted
// only to ended. Terminal states admit nothing.
func CanTransition(from, to MeetingStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusEnded || to == StatusRejected || to == StatusTimeout
	case StatusAccepted:
		return to == StatusEnded
	}
	return false
}

// Meeting is a one-on-one support session request between a seeker and a helper.
// HelperID is set at creation for specific meetings and recorded at claim time
// for global ones. AcceptedAt and EndedAt are written exactly once, by the
// transition that enters the corresponding state.
type Meeting struct {
	ID         uuid.UUID     `json:"id"`
	SeekerID   uuid.UUID     `json:"seeker_id"`
	Type       MeetingType   `json:"type"`
	HelperID   *uuid.UUID    `json:"helper_id,omitempty"`
	Status     MeetingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	AcceptedAt *time.Time    `json:"accepted_at,omitempty"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
}

// PendingExpired reports whether a still-pending meeting has waited longer
// than threshold as of now. It is a pure function over stored timestamps so
// it gives the same answer to a sweep job and to an inline claim-time check.
func (m *Meeting) PendingExpired(threshold time.Duration, now time.Time) bool {
	if m.Status != StatusPending {
		return false
	}
	return now.Sub(m.CreatedAt) >= threshold
}

// IsParty reports whether userID is the seeker or the (current) helper.
func (m *Meeting) IsParty(userID uuid.UUID) bool {
	if m.SeekerID == userID {
		return true
	}
	return m.HelperID != nil && *m.HelperID == userID
}

// RoomName returns the media-session room identifier for this meeting.
func (m *Meeting) RoomName() string {
	return m.ID.String()
}
