package middleware

import (
	"strings"

	"creatorpay-platform/pkg/auth"
	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// Authenticate extracts the bearer token, validates it and attaches the
// typed caller identity to the request context.
func Authenticate(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Error(errutil.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}

		caller, err := auth.ParseToken(cfg.Auth.Secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// RequireRole guards a route group behind a single role.
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || caller.Role != role {
			c.Error(errutil.Forbidden("insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CallerFrom returns the caller identity set by Authenticate.
func CallerFrom(c *gin.Context) (auth.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return auth.Caller{}, false
	}
	caller, ok := v.(auth.Caller)
	return caller, ok
}
