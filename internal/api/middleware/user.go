package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/source"
)

const (
	// UserIDHeader carries the acting user, set by the fronting gateway.
	UserIDHeader = "X-User-ID"

	userIDKey      = "user_id"
	credentialsKey = "upstream_credentials"
)

// CurrentUser requires the X-User-ID header and captures the bearer token
// from Authorization for pass-through to the archive API.
func CurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing " + UserIDHeader + " header",
				"code":  "UNAUTHENTICATED",
			})
			return
		}

		token := ""
		if auth := c.GetHeader("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			token = strings.TrimSpace(auth[7:])
		}

		c.Request = c.Request.WithContext(logger.SetUserID(c.Request.Context(), userID))
		c.Set(userIDKey, userID)
		c.Set(credentialsKey, source.Credentials{Token: token})
		c.Next()
	}
}

// UserID returns the user set by CurrentUser.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// Credentials returns the upstream credentials set by CurrentUser.
func Credentials(c *gin.Context) source.Credentials {
	if v, ok := c.Get(credentialsKey); ok {
		if creds, ok := v.(source.Credentials); ok {
			return creds
		}
	}
	return source.Credentials{}
}
