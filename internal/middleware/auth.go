// Package middleware holds the gin middleware shared by all routes.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/ember/internal/auth"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/utils/response"
)

// SessionCookie is the HTTP-only cookie carrying the session token.
const SessionCookie = "session_token"

// Context keys set by RequireAuth.
const (
	UserIDKey = "userId"
	UserKey   = "user"
)

// TokenFromRequest prefers the session cookie over the Authorization header.
func TokenFromRequest(c *gin.Context) string {
	if v := sessionCookie(c); v != "" {
		return v
	}
	return BearerToken(c)
}

// BearerToken returns the Authorization bearer token or "".
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func sessionCookie(c *gin.Context) string {
	v, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return v
}

// RequireAuth resolves the caller and stores it on the context.
// A stale session cookie falls through to the bearer token.
func RequireAuth(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := a.AuthenticateRequest(c.Request.Context(), sessionCookie(c), BearerToken(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(UserIDKey, u.ID)
		c.Set(UserKey, u)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) *db.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*db.User); ok {
			return u
		}
	}
	return nil
}

// CurrentUserID returns the caller id or "".
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
