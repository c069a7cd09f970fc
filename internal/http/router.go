package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	authSvc *service.AuthService,
	accountH *AccountHandler,
	authH *AuthHandler,
	sessionH *SessionHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.POST("/accounts", accountH.CreateAccount)

	auth := r.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/2fa/verify", authH.VerifyTwoFactor)
	auth.POST("/2fa/resend", authH.ResendTwoFactor)
	auth.POST("/password-reset/request", authH.RequestPasswordReset)
	auth.POST("/password-reset/redeem", authH.RedeemPasswordReset)

	authed := auth.Group("")
	authed.Use(SessionAuthMiddleware(authSvc))
	authed.GET("/me", sessionH.Me)
	authed.POST("/logout", sessionH.Logout)
	authed.POST("/logout-all", sessionH.LogoutAll)
	authed.GET("/sessions", sessionH.ListSessions)
	authed.DELETE("/sessions/:id", sessionH.RevokeSession)
	authed.POST("/two-factor", sessionH.SetTwoFactor)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
