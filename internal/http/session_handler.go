package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/service"
)

// SessionHandler atiende las rutas que requieren una sesion valida.
type SessionHandler struct {
	logger      *zap.Logger
	authServ    *service.AuthService
	accountServ *service.AccountService
}

func NewSessionHandler(logger *zap.Logger, authServ *service.AuthService, accountServ *service.AccountService) *SessionHandler {
	return &SessionHandler{
		logger:      logger,
		authServ:    authServ,
		accountServ: accountServ,
	}
}

// Me maneja GET /auth/me.
func (h *SessionHandler) Me(c *gin.Context) {
	session, ok := GetAuthSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id": session.AccountID,
		"session_id": session.ID,
	})
}

// Logout maneja POST /auth/logout sobre la sesion actual.
func (h *SessionHandler) Logout(c *gin.Context) {
	session, ok := GetAuthSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	if err := h.authServ.Logout(c.Request.Context(), session.ID); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log out"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// LogoutAll maneja POST /auth/logout-all.
func (h *SessionHandler) LogoutAll(c *gin.Context) {
	session, ok := GetAuthSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	if err := h.authServ.LogoutAll(c.Request.Context(), session.AccountID); err != nil {
		h.logger.Error("logout all failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log out"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out_everywhere"})
}

// ListSessions maneja GET /auth/sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	session, ok := GetAuthSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	summaries, err := h.authServ.ListSessions(c.Request.Context(), session.AccountID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// RevokeSession maneja DELETE /auth/sessions/:id, con chequeo de
// pertenencia antes de revocar.
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	session, ok := GetAuthSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	targetID := c.Param("id")
	if err := h.authServ.RevokeSession(c.Request.Context(), session.AccountID, targetID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.Error("revoke session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not revoke session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// SetTwoFactor maneja POST /auth/two-factor.
func (h *SessionHandler) SetTwoFactor(c *gin.Context) {
	session, ok := GetAuthSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid two-factor request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.accountServ.SetTwoFactor(c.Request.Context(), session.AccountID, *req.Enabled); err != nil {
		h.logger.Error("set two-factor failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update two-factor"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"two_factor_enabled": *req.Enabled})
}
