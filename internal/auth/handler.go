package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peerlink-support/backend/internal/models"
	"github.com/peerlink-support/backend/pkg/queue"
	"github.com/peerlink-support/backend/pkg/response"
	"github.com/peerlink-support/backend/pkg/utils"
)

const resetCodeTTL = 15 * time.Minute

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	FirstName string `json:"first_name" binding:"required,min=2"`
	LastName  string `json:"last_name" binding:"required,min=2"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /auth/forgotpassword.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for PUT /auth/resetpassword.
type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates an auth handler. queue may be nil; password reset
// emails are then skipped (dev mode).
func NewHandler(repo *Repository, jwt *JWTService, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, queue: q, logger: logger}
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		response.BadRequest(c, "role must be seeker or helper")
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FirstName, req.LastName, models.Role(req.Role))
	if err != nil {
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// ForgotPassword handles POST /auth/forgotpassword: store a short-lived
// reset code and email it. The response does not reveal whether the email
// exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.OK(c, gin.H{"message": "if the account exists, a reset code has been sent"})
		return
	}

	code, err := generateResetCode()
	if err != nil {
		response.Internal(c, "failed to generate reset code")
		return
	}
	codeHash, err := utils.HashPassword(code)
	if err != nil {
		response.Internal(c, "failed to generate reset code")
		return
	}
	if err := h.repo.SetResetCode(c.Request.Context(), user.ID, codeHash, time.Now().Add(resetCodeTTL)); err != nil {
		response.Internal(c, "failed to store reset code")
		return
	}

	if h.queue != nil {
		err := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
			RecipientEmail: user.Email,
			Subject:        "Your password reset code",
			BodyText:       fmt.Sprintf("Hi %s,\n\nYour password reset code is %s. It expires in 15 minutes.\n", user.FirstName, code),
		})
		if err != nil {
			h.logger.Error("enqueue reset email", zap.Error(err))
			response.Internal(c, "failed to send reset code")
			return
		}
	}
	response.OK(c, gin.H{"message": "if the account exists, a reset code has been sent"})
}

// ResetPassword handles PUT /auth/resetpassword.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.BadRequest(c, "invalid reset code")
		return
	}
	if user.ResetCode == "" || user.ResetCodeExpires == nil || time.Now().After(*user.ResetCodeExpires) {
		response.BadRequest(c, "invalid or expired reset code")
		return
	}
	if !utils.CheckPassword(req.Code, user.ResetCode) {
		response.BadRequest(c, "invalid reset code")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.ResetPassword(c.Request.Context(), user.ID, hash); err != nil {
		response.Internal(c, "failed to reset password")
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}

// generateResetCode returns a 6-digit numeric code.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
