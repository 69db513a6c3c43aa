package meetings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerlink-support/backend/internal/middleware"
	"github.com/peerlink-support/backend/internal/models"
)

// testAuth injects the given identity the way the JWT middleware would.
func testAuth(userID uuid.UUID, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, string(role))
		c.Next()
	}
}

func newTestRouter(f *fixture, userID uuid.UUID, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc)
	r := gin.New()
	g := r.Group("", testAuth(userID, role))
	g.POST("/meetings", h.Create)
	g.GET("/meetings/global", h.ListGlobal)
	g.GET("/meetings/pending-specific", h.ListPendingSpecific)
	g.POST("/meetings/accept-specific", h.AcceptSpecific)
	g.POST("/meetings/accept-first", h.AcceptFirst)
	g.POST("/meetings/reject", h.Reject)
	g.POST("/meetings/end", h.End)
	g.POST("/meetings/token", h.Token)
	g.GET("/meetings/:id", h.Get)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateMeeting(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f, f.seeker, models.RoleSeeker)

	w := doJSON(t, r, http.MethodPost, "/meetings", gin.H{"type": "global"})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Meeting models.Meeting `json:"meeting"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, models.StatusPending, body.Data.Meeting.Status)
	assert.Equal(t, f.seeker, body.Data.Meeting.SeekerID)
}

func TestHandlerCreateMeetingValidation(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f, f.seeker, models.RoleSeeker)

	w := doJSON(t, r, http.MethodPost, "/meetings", gin.H{"type": "broadcast"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/meetings", gin.H{"type": "specific"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/meetings", gin.H{"type": "specific", "helper": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerAcceptFirstFlow(t *testing.T) {
	f := newFixture(t)
	seekerRouter := newTestRouter(f, f.seeker, models.RoleSeeker)
	helperRouter := newTestRouter(f, f.helper, models.RoleHelper)

	w := doJSON(t, seekerRouter, http.MethodPost, "/meetings", gin.H{"type": "global"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, helperRouter, http.MethodPost, "/meetings/accept-first", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Meeting  models.Meeting `json:"meeting"`
			Token    string         `json:"token"`
			RoomName string         `json:"room_name"`
			Identity string         `json:"identity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.StatusAccepted, body.Data.Meeting.Status)
	assert.NotEmpty(t, body.Data.Token)
	assert.Equal(t, body.Data.Meeting.ID.String(), body.Data.RoomName)
	assert.Equal(t, f.helper.String(), body.Data.Identity)

	// the winner is now busy
	w = doJSON(t, helperRouter, http.MethodPost, "/meetings/accept-first", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// and the queue is drained for everyone else
	other := f.addUser(models.RoleHelper)
	otherRouter := newTestRouter(f, other, models.RoleHelper)
	w = doJSON(t, otherRouter, http.MethodPost, "/meetings/accept-first", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerAcceptSpecificForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := newTestRouter(f, f.seeker, models.RoleSeeker)

	w := doJSON(t, ctx, http.MethodPost, "/meetings", gin.H{"type": "specific", "helper": f.helper.String()})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data struct {
			Meeting models.Meeting `json:"meeting"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	intruder := f.addUser(models.RoleHelper)
	intruderRouter := newTestRouter(f, intruder, models.RoleHelper)
	w = doJSON(t, intruderRouter, http.MethodPost, "/meetings/accept-specific",
		gin.H{"meeting_id": created.Data.Meeting.ID.String()})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerRejectAndConflict(t *testing.T) {
	f := newFixture(t)
	seekerRouter := newTestRouter(f, f.seeker, models.RoleSeeker)
	helperRouter := newTestRouter(f, f.helper, models.RoleHelper)

	w := doJSON(t, seekerRouter, http.MethodPost, "/meetings", gin.H{"type": "specific", "helper": f.helper.String()})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data struct {
			Meeting models.Meeting `json:"meeting"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.Meeting.ID.String()

	w = doJSON(t, helperRouter, http.MethodPost, "/meetings/reject", gin.H{"meeting_id": id})
	assert.Equal(t, http.StatusOK, w.Code)

	// rejecting twice conflicts
	w = doJSON(t, helperRouter, http.MethodPost, "/meetings/reject", gin.H{"meeting_id": id})
	assert.Equal(t, http.StatusConflict, w.Code)

	// and so does accepting a rejected meeting
	w = doJSON(t, helperRouter, http.MethodPost, "/meetings/accept-specific", gin.H{"meeting_id": id})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlerGetMeeting(t *testing.T) {
	f := newFixture(t)
	seekerRouter := newTestRouter(f, f.seeker, models.RoleSeeker)

	w := doJSON(t, seekerRouter, http.MethodPost, "/meetings", gin.H{"type": "global"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data struct {
			Meeting models.Meeting `json:"meeting"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.Meeting.ID

	w = doJSON(t, seekerRouter, http.MethodGet, fmt.Sprintf("/meetings/%s", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	stranger := f.addUser(models.RoleSeeker)
	strangerRouter := newTestRouter(f, stranger, models.RoleSeeker)
	w = doJSON(t, strangerRouter, http.MethodGet, fmt.Sprintf("/meetings/%s", id), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, seekerRouter, http.MethodGet, fmt.Sprintf("/meetings/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerPendingSpecificListing(t *testing.T) {
	f := newFixture(t)
	seekerRouter := newTestRouter(f, f.seeker, models.RoleSeeker)
	helperRouter := newTestRouter(f, f.helper, models.RoleHelper)

	w := doJSON(t, seekerRouter, http.MethodPost, "/meetings", gin.H{"type": "specific", "helper": f.helper.String()})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, helperRouter, http.MethodGet, "/meetings/pending-specific", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Meetings []PendingMeeting `json:"meetings"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Meetings, 1)
	assert.NotEmpty(t, body.Data.Meetings[0].SeekerName)
}
