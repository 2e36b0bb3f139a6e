package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextTeacherID is the gin context key holding the authenticated teacher.
const ContextTeacherID = "teacherID"

// SessionAuth enforces bearer session tokens signed with HS256. Step tokens
// from the intermediate auth stages are rejected here.
func SessionAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := ParseToken(tokenStr, signingKey, issuer, StageSession)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ContextTeacherID, claims.Subject)
		c.Next()
	}
}

// TeacherID returns the authenticated teacher id set by SessionAuth.
func TeacherID(c *gin.Context) string {
	return c.GetString(ContextTeacherID)
}
