package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/service"
)

// AccountHandler mantiene dependencias para endpoints de cuentas.
type AccountHandler struct {
	logger      *zap.Logger
	accountServ *service.AccountService
}

func NewAccountHandler(logger *zap.Logger, accountServ *service.AccountService) *AccountHandler {
	return &AccountHandler{
		logger:      logger,
		accountServ: accountServ,
	}
}

// CreateAccount maneja POST /accounts.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req struct {
		Email            string `json:"email" binding:"required,email"`
		DisplayName      string `json:"display_name"`
		Password         string `json:"password" binding:"required"`
		TwoFactorEnabled bool   `json:"two_factor_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create account request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.accountServ.Create(c.Request.Context(), service.CreateAccountInput{
		Email:            req.Email,
		DisplayName:      req.DisplayName,
		Password:         req.Password,
		TwoFactorEnabled: req.TwoFactorEnabled,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrDuplicateAccount):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		default:
			h.logger.Error("create account failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}
