package middleware

import (
	"github.com/gin-gonic/gin"
)

// ContextSessionKey is the gin context key storing the visitor session id.
const ContextSessionKey = "shareSession"

// SessionHeader carries the visitor-generated session id on public
// share requests. A query fallback exists for clients that cannot set
// headers.
const (
	SessionHeader = "X-Share-Session"
	sessionQuery  = "session"
)

// ShareSession extracts the visitor session id and stores it on the
// context. Presence is not enforced here; operations that need a
// session reject its absence themselves.
func ShareSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := c.GetHeader(SessionHeader)
		if session == "" {
			session = c.Query(sessionQuery)
		}
		if session != "" {
			c.Set(ContextSessionKey, session)
		}
		c.Next()
	}
}
