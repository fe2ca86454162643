package handler // declare the package name; contains HTTP handlers

import (
    "context"      // bounded ping
    "database/sql" // store handle
    "net/http"     // net/http provides status codes and response helpers
    "time"         // ping timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health returns the health-check endpoint used by load balancers.  It
// answers 200 "ok" while the store responds to a ping and 503 otherwise.
func Health(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.String(http.StatusServiceUnavailable, "database unavailable")
        }
        return c.String(http.StatusOK, "ok")
    }
}
