package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mfajardo/libcirc/internal/circulation"
	"github.com/mfajardo/libcirc/internal/database"
)

// principalKey is the gin context key holding the authenticated principal.
const principalKey = "auth.principal"

// RequireAuth resolves the Authorization bearer token to an account and
// stores the principal on the request context. Requests without a valid
// token are rejected with 401.
func RequireAuth(db *database.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		user, err := db.GetUserByToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(principalKey, circulation.Principal{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// RequireAdmin rejects non-admin principals with 403. Must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal stored by RequireAuth.
func GetPrincipal(c *gin.Context) (circulation.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return circulation.Principal{}, false
	}
	principal, ok := value.(circulation.Principal)
	return principal, ok
}
