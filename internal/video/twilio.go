package video

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/peerlink-support/backend/config"
)

// TwilioIssuer mints Twilio Video access tokens: an HS256 JWT signed with the
// API key secret, carrying a video grant for the meeting's room. Format per
// Twilio's access token docs (cty "twilio-fst;v=1", iss = API key SID,
// sub = account SID).
type TwilioIssuer struct {
	accountSID string
	apiKey     string
	apiSecret  string
	ttl        time.Duration
}

// NewTwilioIssuer creates a Twilio issuer, validating credentials up front.
func NewTwilioIssuer(cfg config.TwilioConfig, ttl time.Duration) (*TwilioIssuer, error) {
	if cfg.AccountSID == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: TWILIO_ACCOUNT_SID, TWILIO_API_KEY, TWILIO_API_SECRET required", ErrNotConfigured)
	}
	return &TwilioIssuer{
		accountSID: cfg.AccountSID,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		ttl:        ttl,
	}, nil
}

// IssueToken returns a room-scoped video credential for the identity.
func (t *TwilioIssuer) IssueToken(meetingID, identity string) (*Credential, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"jti": fmt.Sprintf("%s-%d", t.apiKey, now.Unix()),
		"iss": t.apiKey,
		"sub": t.accountSID,
		"iat": now.Unix(),
		"exp": now.Add(t.ttl).Unix(),
		"grants": map[string]interface{}{
			"identity": identity,
			"video": map[string]interface{}{
				"room": meetingID,
			},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = "twilio-fst;v=1"

	signed, err := token.SignedString([]byte(t.apiSecret))
	if err != nil {
		return nil, fmt.Errorf("sign video token: %w", err)
	}
	return &Credential{Token: signed, RoomName: meetingID, Identity: identity}, nil
}
