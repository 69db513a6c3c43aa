package users

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peerlink-support/backend/internal/auth"
	"github.com/peerlink-support/backend/internal/middleware"
	"github.com/peerlink-support/backend/pkg/response"
)

// UpdateMeRequest is the body for PUT /users/me.
type UpdateMeRequest struct {
	FirstName string `json:"first_name" binding:"required,min=2"`
	LastName  string `json:"last_name" binding:"required,min=2"`
}

// Handler handles the caller's own profile endpoints.
type Handler struct {
	repo *auth.Repository
}

// NewHandler creates a users handler.
func NewHandler(repo *auth.Repository) *Handler {
	return &Handler{repo: repo}
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// UpdateMe handles PUT /users/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.repo.UpdateName(c.Request.Context(), userID, req.FirstName, req.LastName)
	if err != nil {
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, user.ToPublic())
}

// DeleteMe handles DELETE /users/me. Meetings are retained as an audit trail.
func (h *Handler) DeleteMe(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.repo.Delete(c.Request.Context(), userID); err != nil {
		response.Internal(c, "failed to delete account")
		return
	}
	response.NoContent(c)
}
