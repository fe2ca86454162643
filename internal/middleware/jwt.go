package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "errors"   // errors distinguishes a missing credential from a bad one
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/parking-lot-admin/internal/auth" // session verification
)

// LotIDKey is the echo context key under which JWTAuth stores the lot ID
// bound to the caller's session.
const LotIDKey = "lot_id"

// Authorizer resolves a raw session credential to a lot ID.  *auth.Guard
// satisfies it.
type Authorizer interface {
    Authorize(raw string) (string, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer session
// credential and injects the bound lot ID into the request context.  It
// should wrap every lot-scoped route so that handlers read the caller's
// lot only via LotID(c), never from the request body.
func JWTAuth(g Authorizer) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            header := c.Request().Header.Get("Authorization")
            raw := ""
            if strings.HasPrefix(header, "Bearer ") {
                raw = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
            }

            lotID, err := g.Authorize(raw)
            if err != nil {
                msg := "invalid token"
                if errors.Is(err, auth.ErrMissingCredential) {
                    msg = "missing bearer token"
                }
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
            }

            c.Set(LotIDKey, lotID)
            return next(c)
        }
    }
}
