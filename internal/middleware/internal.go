package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peerlink-support/backend/pkg/response"
)

// InternalToken returns a middleware for system/cron endpoints. The caller
// must present the configured token as a bearer credential; with no token
// configured the endpoint is disabled.
func InternalToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Unauthorized(c, "internal endpoints disabled")
			c.Abort()
			return
		}
		header := c.GetHeader("Authorization")
		presented := strings.TrimPrefix(header, "Bearer ")
		if presented == header || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			response.Unauthorized(c, "invalid internal token")
			c.Abort()
			return
		}
		c.Next()
	}
}
