package video

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerlink-support/backend/config"
)

func TestNewTwilioIssuerRequiresCredentials(t *testing.T) {
	_, err := NewTwilioIssuer(config.TwilioConfig{}, time.Hour)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTwilioIssueToken(t *testing.T) {
	issuer, err := NewTwilioIssuer(config.TwilioConfig{
		AccountSID: "AC0000000000000000000000000000000",
		APIKey:     "SK0000000000000000000000000000000",
		APISecret:  "super-secret",
	}, time.Hour)
	require.NoError(t, err)

	cred, err := issuer.IssueToken("meeting-123", "user-456")
	require.NoError(t, err)
	assert.Equal(t, "meeting-123", cred.RoomName)
	assert.Equal(t, "user-456", cred.Identity)

	token, err := jwt.Parse(cred.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	assert.Equal(t, "twilio-fst;v=1", token.Header["cty"])

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "SK0000000000000000000000000000000", claims["iss"])
	assert.Equal(t, "AC0000000000000000000000000000000", claims["sub"])

	grants := claims["grants"].(map[string]interface{})
	assert.Equal(t, "user-456", grants["identity"])
	video := grants["video"].(map[string]interface{})
	assert.Equal(t, "meeting-123", video["room"])
}
