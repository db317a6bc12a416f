package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coastline-realty/content-backend/internal/auth"
	"github.com/coastline-realty/content-backend/pkg/response"
)

// SessionToken copies the session token from the admin cookie, or from a
// Bearer Authorization header, into the request context. It never rejects a
// request; services decide through auth.Guard.
func SessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || token == "" {
			token = bearerToken(c.GetHeader("Authorization"))
		}
		if token != "" {
			c.Request = c.Request.WithContext(auth.WithToken(c.Request.Context(), token))
		}
		c.Next()
	}
}

// RequireSession rejects requests without a valid admin session.
func RequireSession(guard auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !guard.IsAuthenticated(c.Request.Context()) {
			response.Unauthorized(c, "admin session required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
