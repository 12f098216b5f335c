package middleware

import (
	"net/http"

	"github.com/cakely/auth-service/internal/token"
	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "token"

const errUnauthorized = "Unauthorized"

// Auth validates the session cookie and sets "userID" in the gin context.
// Each request is re-verified independently; there is no session affinity.
func Auth(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookie)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "message": errUnauthorized})
			return
		}

		userID, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "message": errUnauthorized})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
