package middleware

import "github.com/labstack/echo/v4"

// LotID returns the lot ID stored by JWTAuth, or "" on unguarded routes.
func LotID(c echo.Context) string {
    if s, ok := c.Get(LotIDKey).(string); ok {
        return s
    }
    return ""
}

// lotKey is LotID for rate-limit keys; anonymous callers share "anon".
func lotKey(c echo.Context) string {
    if s := LotID(c); s != "" {
        return s
    }
    return "anon"
}
