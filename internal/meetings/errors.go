package meetings

import "errors"

var (
	// ErrNotFound means the meeting (or a referenced user) does not exist.
	ErrNotFound = errors.New("meeting not found")
	// ErrForbidden means the caller is not a party to the meeting or lacks the required role.
	ErrForbidden = errors.New("not authorized for this meeting")
	// ErrConflict means the requested status transition is not legal from the current state.
	ErrConflict = errors.New("meeting status conflict")
	// ErrMeetingTimeout means the meeting aged out waiting for a helper.
	ErrMeetingTimeout = errors.New("meeting has timed out waiting for helper")
	// ErrNoPending means no pending global meetings were claimable.
	ErrNoPending = errors.New("no pending meetings")
	// ErrHelperBusy means the helper already has an accepted meeting.
	ErrHelperBusy = errors.New("helper is already in another meeting")
	// ErrSeekerHasActive is returned by the store when an insert would give a
	// seeker a second active meeting.
	ErrSeekerHasActive = errors.New("seeker already has an active meeting")
	// ErrInvalidTransition is returned by the store for a from/to pair the
	// state machine does not define.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports a malformed or unauthorized request field.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErr(msg string) error { return &ValidationError{Msg: msg} }
