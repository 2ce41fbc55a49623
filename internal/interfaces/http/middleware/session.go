package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader carries the shopper's session/device identifier. The
// client sends the one it was issued; a request without one gets a fresh
// identifier minted and echoed back so the client can persist it.
const SessionHeader = "X-Session-ID"

const sessionContextKey = "session_id"

// Session resolves the per-session identifier for every request
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		c.Set(sessionContextKey, sessionID)
		c.Writer.Header().Set(SessionHeader, sessionID)
		c.Next()
	}
}

// GetSessionID retrieves the session identifier from gin context
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
