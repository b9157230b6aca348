package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/auth"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/util"
)

// Register creates an account and returns a session token
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "user", "failed to create account")
		return
	}
	h.search.IndexUser(resp.User)

	c.JSON(http.StatusCreated, resp)
}

// Login exchanges credentials for a session token
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "user", "failed to sign in")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout takes every open socket of the user out of their room. Tokens are stateless,
// so the client discards its own.
// POST /api/v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if h.realtime != nil {
		h.realtime.DisconnectUser(userID)
	}
	logger.Log.Info("User logged out", logger.WithUserID(userID))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the signed-in user
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// VerifyEmail consumes the emailed verification code
// POST /api/v1/auth/verify-email
func (h *Handlers) VerifyEmail(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "code", "a 6 digit code is required")
		return
	}

	if err := h.auth.VerifyEmail(c.Request.Context(), userID, req.Code); err != nil {
		respondError(c, err, "user", "failed to verify email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// ResendVerification mails a fresh verification code
// POST /api/v1/auth/resend-verification
func (h *Handlers) ResendVerification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.auth.ResendVerification(c.Request.Context(), userID); err != nil {
		respondError(c, err, "user", "failed to send verification code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

// ForgotPassword mails a reset code. The answer is the same whether or not the address
// belongs to an account.
// POST /api/v1/auth/forgot-password
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "email", "a valid email is required")
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		util.RespondInternalError(c, "failed to send reset code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the address is registered, a reset code has been sent"})
}

// ResetPassword sets a new password with a mailed reset code
// POST /api/v1/auth/reset-password
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondError(c, err, "user", "failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// ChangePassword replaces the password of the signed-in user
// PUT /api/v1/auth/password
func (h *Handlers) ChangePassword(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		util.RespondValidationError(c, "current_password", "current password is incorrect")
		return
	}
	if err != nil {
		respondError(c, err, "user", "failed to change password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
