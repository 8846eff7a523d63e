package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/rohitbr234/study-scheduler/sessions"
)

const (
	// SessionCookie is the name of the opaque session id cookie.
	SessionCookie = "scheduler_session"
	// SessionContextKey is the gin context key holding the resolved session.
	SessionContextKey = "session"

	cookieMaxAge = 12 * 60 * 60
)

// Session resolves the visitor's session from the cookie, creating one when
// missing or expired, and stashes it in the request context.
func Session(store *sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var session *sessions.Session

		if id, err := c.Cookie(SessionCookie); err == nil {
			session, _ = store.Get(id)
		}
		if session == nil {
			session = store.Create()
			c.SetCookie(SessionCookie, session.ID, cookieMaxAge, "/", "", false, true)
		}

		c.Set(SessionContextKey, session)
		c.Next()
	}
}

// SessionFromContext returns the session installed by the Session middleware.
func SessionFromContext(c *gin.Context) *sessions.Session {
	if v, ok := c.Get(SessionContextKey); ok {
		if session, ok := v.(*sessions.Session); ok {
			return session
		}
	}
	return nil
}
