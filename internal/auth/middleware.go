package auth

import (
	"net/http"

	dom "qrstudio/internal/domain"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie set at login and registration.
const CookieName = "session_id"

const contextKeyIdentity = "identity"

// IdentityFromContext returns the identity set by RequireSession.
func IdentityFromContext(c *gin.Context) (dom.Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return dom.Identity{}, false
	}
	id, ok := v.(dom.Identity)
	return id, ok
}

// UserIDFromContext returns the current user ID set by RequireSession. 0 if not set.
func UserIDFromContext(c *gin.Context) int64 {
	id, _ := IdentityFromContext(c)
	return id.ID
}

// Authenticate resolves the request's session cookie to an identity.
func Authenticate(c *gin.Context, sessions SessionStore) (dom.Identity, bool, error) {
	sessionID, err := c.Cookie(CookieName)
	if err != nil || sessionID == "" {
		return dom.Identity{}, false, nil
	}
	return sessions.Get(c.Request.Context(), sessionID)
}

// RequireSession returns a middleware that checks for a valid session cookie
// and sets the current identity in context. If missing or invalid, responds with 401.
func RequireSession(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok, err := Authenticate(c, sessions)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		c.Set(contextKeyIdentity, identity)
		c.Next()
	}
}
