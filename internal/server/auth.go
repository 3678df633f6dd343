package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminRealm = `Basic realm="turkalkol admin"`

// basicAuthGuard protects the admin surface with static credentials. CORS
// preflights pass through unauthenticated since browsers never attach
// credentials to them.
func basicAuthGuard(username, password string, logger *zap.Logger) gin.HandlerFunc {
	expectedUser := []byte(username)
	expectedPass := []byte(password)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), expectedUser) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), expectedPass) == 1
		if !ok || !userMatch || !passMatch {
			logger.Warn("admin authentication rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(requestIDContextKey)))
			c.Header("WWW-Authenticate", adminRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}
