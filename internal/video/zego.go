package video

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ZEGOCLOUD/zego_server_assistant/token/go/src/token04"

	"github.com/peerlink-support/backend/config"
)

// ZegoIssuer mints ZEGOCLOUD token04 tokens. Both parties of a support call
// publish, so tokens carry login and publish privileges.
type ZegoIssuer struct {
	appID        uint32
	serverSecret string
	ttl          time.Duration
}

// rtcRoomPayload is the token04 room payload. See ZEGOCLOUD token04 docs.
type rtcRoomPayload struct {
	RoomID    string      `json:"RoomId"`
	Privilege map[int]int `json:"Privilege"`
}

// NewZegoIssuer creates a ZEGO issuer, validating credentials up front.
// serverSecret must be 32 characters per the token04 scheme.
func NewZegoIssuer(cfg config.ZegoConfig, ttl time.Duration) (*ZegoIssuer, error) {
	if cfg.AppID == 0 || cfg.ServerSecret == "" {
		return nil, fmt.Errorf("%w: ZEGO_APP_ID, ZEGO_SERVER_SECRET required", ErrNotConfigured)
	}
	if len(cfg.ServerSecret) != 32 {
		return nil, fmt.Errorf("%w: ZEGO_SERVER_SECRET must be 32 characters", ErrNotConfigured)
	}
	return &ZegoIssuer{appID: cfg.AppID, serverSecret: cfg.ServerSecret, ttl: ttl}, nil
}

// IssueToken returns a room-scoped credential for the identity.
func (z *ZegoIssuer) IssueToken(meetingID, identity string) (*Credential, error) {
	payload := rtcRoomPayload{
		RoomID: meetingID,
		Privilege: map[int]int{
			token04.PrivilegeKeyLogin:   token04.PrivilegeEnable,
			token04.PrivilegeKeyPublish: token04.PrivilegeEnable,
		},
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal zego payload: %w", err)
	}
	token, err := token04.GenerateToken04(z.appID, identity, z.serverSecret, int64(z.ttl.Seconds()), string(payloadJSON))
	if err != nil {
		return nil, fmt.Errorf("generate zego token: %w", err)
	}
	return &Credential{Token: token, RoomName: meetingID, Identity: identity}, nil
}
