// Package video issues session credentials admitting a participant into the
// two-party media room for a meeting. The matchmaking core depends only on
// the Issuer interface, not on which vendor backs it.
package video

import "errors"

// ErrNotConfigured means the selected provider is missing credentials.
var ErrNotConfigured = errors.New("video provider not configured")

// Credential admits one identity into one media room.
type Credential struct {
	Token    string `json:"token"`
	RoomName string `json:"room_name"`
	Identity string `json:"identity"`
}

// Issuer mints a session credential scoped to a meeting and a participant.
type Issuer interface {
	IssueToken(meetingID, identity string) (*Credential, error)
}
