package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/domain"
	"recruitflow/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de acceso.
type AuthHandler struct {
	logger    *zap.Logger
	authServ  *service.AuthService
	resetServ *service.ResetService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, resetServ *service.ResetService) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		authServ:  authServ,
		resetServ: resetServ,
	}
}

func originFrom(c *gin.Context) domain.Origin {
	return domain.Origin{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.authServ.Login(c.Request.Context(), req.Email, req.Password, originFrom(c))
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process login"})
		return
	}

	switch result.Status {
	case service.LoginAuthenticated:
		c.JSON(http.StatusOK, gin.H{
			"status":  "authenticated",
			"token":   result.Token,
			"session": result.Session.Summary(),
		})
	case service.LoginChallengeRequired:
		c.JSON(http.StatusOK, gin.H{
			"status":        "two_factor_required",
			"challenge_ref": result.ChallengeRef,
			"masked_email":  result.MaskedEmail,
			"delivered":     result.CodeDelivered,
		})
	case service.LoginLocked:
		c.JSON(http.StatusLocked, gin.H{"error": "account temporarily locked"})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	}
}

// VerifyTwoFactor maneja POST /auth/2fa/verify.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req struct {
		ChallengeRef string `json:"challenge_ref" binding:"required"`
		Code         string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid 2fa verify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.authServ.VerifyTwoFactor(c.Request.Context(), req.ChallengeRef, req.Code, originFrom(c))
	if err != nil {
		h.logger.Error("2fa verify failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify code"})
		return
	}

	if result.Status != service.LoginAuthenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "authenticated",
		"token":   result.Token,
		"session": result.Session.Summary(),
	})
}

// ResendTwoFactor maneja POST /auth/2fa/resend.
func (h *AuthHandler) ResendTwoFactor(c *gin.Context) {
	var req struct {
		ChallengeRef string `json:"challenge_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid 2fa resend request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	issue, err := h.authServ.ResendTwoFactor(c.Request.Context(), req.ChallengeRef)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "challenge not found"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		default:
			h.logger.Error("2fa resend failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resend code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "sent",
		"masked_email": issue.MaskedEmail,
		"delivered":    issue.Delivered,
	})
}

// RequestPasswordReset maneja POST /auth/password-reset/request. La
// respuesta es identica exista o no la cuenta.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.resetServ.Request(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("reset request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process request"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "reset_requested"})
}

// RedeemPasswordReset maneja POST /auth/password-reset/redeem.
func (h *AuthHandler) RedeemPasswordReset(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset redeem request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.resetServ.Redeem(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		}
		if errors.Is(err, service.ErrInvalidPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
			return
		}
		h.logger.Error("reset redeem failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_reset"})
}
