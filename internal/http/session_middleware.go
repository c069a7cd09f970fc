package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recruitflow/internal/domain"
	"recruitflow/internal/service"
)

const authSessionKey = "auth_session"

// SessionAuthMiddleware valida el token de sesion presentado como Bearer
// y guarda la sesion en el contexto. Toda falla colapsa en un mismo 401.
func SessionAuthMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		session, err := authSvc.ValidateSession(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			c.Abort()
			return
		}

		c.Set(authSessionKey, session)
		c.Next()
	}
}

// GetAuthSession obtiene la sesion autenticada desde el contexto.
func GetAuthSession(c *gin.Context) (domain.Session, bool) {
	val, ok := c.Get(authSessionKey)
	if !ok {
		return domain.Session{}, false
	}
	session, ok := val.(domain.Session)
	return session, ok
}
