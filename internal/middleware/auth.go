package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// InternalKeyHeader carries the shared key on service-to-service calls
// to the queue's internal API.
const InternalKeyHeader = "X-Internal-API-Key"

// internalKeyEnv names the environment variable holding the shared key.
const internalKeyEnv = "INTERNAL_API_KEY"

// InternalAuthMiddleware guards the internal job endpoints. With no key
// configured every request is refused rather than running the queue open.
func InternalAuthMiddleware() gin.HandlerFunc {
	expected := []byte(os.Getenv(internalKeyEnv))
	if len(expected) == 0 {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "server misconfigured: " + internalKeyEnv + " not set",
			})
		}
	}

	return func(c *gin.Context) {
		presented := []byte(c.GetHeader(InternalKeyHeader))
		// Constant-time compare keeps the key unobservable through timing
		if subtle.ConstantTimeCompare(presented, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.Next()
	}
}
