package meetings

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peerlink-support/backend/internal/middleware"
	"github.com/peerlink-support/backend/internal/models"
	"github.com/peerlink-support/backend/pkg/response"
)

// CreateRequest is the body for POST /meetings.
type CreateRequest struct {
	Type   string `json:"type" binding:"required"`
	Helper string `json:"helper"` // helper user ID, required for specific meetings
}

// MeetingIDRequest is the body for accept/reject/end/token endpoints.
type MeetingIDRequest struct {
	MeetingID string `json:"meeting_id" binding:"required,uuid"`
}

// Handler handles meeting HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a meeting handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /meetings (seeker only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidMeetingType(req.Type) {
		response.BadRequest(c, "invalid meeting type")
		return
	}
	var helperID *uuid.UUID
	if req.Helper != "" {
		id, err := uuid.Parse(req.Helper)
		if err != nil {
			response.BadRequest(c, "invalid helper id")
			return
		}
		helperID = &id
	}

	seekerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	m, err := h.svc.Create(c.Request.Context(), seekerID, models.MeetingType(req.Type), helperID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, gin.H{"meeting": m})
}

// Get handles GET /meetings/:id (seeker or named helper).
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	callerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	m, err := h.svc.Get(c.Request.Context(), callerID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"meeting": m})
}

// ListGlobal handles GET /meetings/global (helper only).
func (h *Handler) ListGlobal(c *gin.Context) {
	list, err := h.svc.PendingGlobal(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []models.Meeting{}
	}
	response.OK(c, gin.H{"meetings": list})
}

// ListPendingSpecific handles GET /meetings/pending-specific (helper only).
func (h *Handler) ListPendingSpecific(c *gin.Context) {
	helperID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.svc.PendingSpecific(c.Request.Context(), helperID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"meetings": list})
}

// AcceptSpecific handles POST /meetings/accept-specific (helper only).
func (h *Handler) AcceptSpecific(c *gin.Context) {
	var req MeetingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	helperID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	res, err := h.svc.ClaimSpecific(c.Request.Context(), helperID, uuid.MustParse(req.MeetingID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeClaim(c, res)
}

// AcceptFirst handles POST /meetings/accept-first (helper only).
func (h *Handler) AcceptFirst(c *gin.Context) {
	helperID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	res, err := h.svc.ClaimFirst(c.Request.Context(), helperID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeClaim(c, res)
}

// Reject handles POST /meetings/reject (helper only).
func (h *Handler) Reject(c *gin.Context) {
	var req MeetingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	helperID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	m, err := h.svc.Reject(c.Request.Context(), helperID, uuid.MustParse(req.MeetingID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"meeting": m})
}

// End handles POST /meetings/end (either participant).
func (h *Handler) End(c *gin.Context) {
	var req MeetingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	callerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	m, err := h.svc.End(c.Request.Context(), callerID, uuid.MustParse(req.MeetingID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"meeting": m})
}

// Token handles POST /meetings/token: (re-)issue a session credential for a
// live meeting the caller is allowed to join.
func (h *Handler) Token(c *gin.Context) {
	var req MeetingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	callerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := models.Role(c.GetString(middleware.ContextUserRole))
	cred, err := h.svc.Credential(c.Request.Context(), callerID, role, uuid.MustParse(req.MeetingID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, cred)
}

// CheckPendingTimeouts handles POST /meetings/check-pending-timeouts
// (internal token, called by cron).
func (h *Handler) CheckPendingTimeouts(c *gin.Context) {
	n, err := h.svc.Sweep(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"swept": n})
}

func (h *Handler) writeClaim(c *gin.Context, res *ClaimResult) {
	body := gin.H{"meeting": res.Meeting}
	if res.Credential != nil {
		body["token"] = res.Credential.Token
		body["room_name"] = res.Credential.RoomName
		body["identity"] = res.Credential.Identity
	}
	response.OK(c, body)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(c, verr.Msg)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoPending):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrHelperBusy), errors.Is(err, ErrMeetingTimeout):
		response.Conflict(c, err.Error())
	default:
		response.Internal(c, "internal error")
	}
}
