package middleware

// identity.go provides the user identity lookup shared by the rate limiter
// key builder.  JWTAuth stores the token's sub claim under "user_id"; JSON
// numbers decode as float64, so both numeric and string forms are handled.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID returns a stable textual identifier for the authenticated
// user, or "anon" when the request carries no identity.  Used to scope
// per-bidder rate limit buckets.
func currentUserID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case string:
        if v != "" {
            return v
        }
    case float64:
        return strconv.FormatUint(uint64(v), 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    case int64:
        return strconv.FormatInt(v, 10)
    }
    return "anon"
}
