package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides a user identifier extraction used by the rate
// limiter to build per-user bucket keys.  When no user is authenticated,
// "anon" is returned so unauthenticated traffic shares one bucket per IP.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID renders the authenticated user's id as a string for
// rate-limit key construction.  The JWT middleware stores the raw
// subject claim, which arrives as a JSON number; any non-empty
// representation is acceptable here since the key only needs to be
// stable per user.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case uint64:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	}
	return "anon"
}
