package handler // handler defines http handlers

import (
    "context"  // request-scoped deadlines for store work
    "errors"   // errors.Is against the layered sentinels
    "log/slog" // structured logging of server-side failures
    "net/http" // HTTP status codes
    "time"     // timeout durations

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/parking-lot-admin/internal/auth"       // credential errors
    "github.com/iliyamo/parking-lot-admin/internal/ledger"     // inventory errors
    "github.com/iliyamo/parking-lot-admin/internal/middleware" // caller lot ID
    "github.com/iliyamo/parking-lot-admin/internal/repository" // store errors
)

// Base carries what every handler needs: a logger for 5xx outcomes and
// the per-request time budget for store work.
type Base struct {
    Log     *slog.Logger
    Timeout time.Duration
}

// ctx derives a context bounded by the request timeout.
func (b Base) ctx(c echo.Context) (context.Context, context.CancelFunc) {
    t := b.Timeout
    if t <= 0 {
        t = 5 * time.Second
    }
    return context.WithTimeout(c.Request().Context(), t)
}

// fail writes the status and a client-safe message for err.  Internal
// error text is logged, never returned.
func (b Base) fail(c echo.Context, err error) error {
    status, msg := statusFor(err)
    if status >= http.StatusInternalServerError {
        b.Log.Error("request failed",
            "method", c.Request().Method, "path", c.Path(), "lot_id", middleware.LotID(c), "status", status, "err", err)
    }
    return c.JSON(status, echo.Map{"error": msg})
}

// statusFor maps the auth, ledger and repository sentinels to HTTP.
func statusFor(err error) (int, string) {
    switch {
    case errors.Is(err, auth.ErrMissingCredential):
        return http.StatusBadRequest, "username and password are required"
    case errors.Is(err, auth.ErrInvalidCredential), errors.Is(err, auth.ErrAdminNotFound):
        return http.StatusUnauthorized, "invalid username or password"
    case errors.Is(err, auth.ErrUsernameTaken):
        return http.StatusConflict, "username already taken"

    case errors.Is(err, ledger.ErrUnauthorized):
        return http.StatusForbidden, "booking belongs to another parking lot"
    case errors.Is(err, ledger.ErrLotNotFound):
        return http.StatusNotFound, "parking lot not found"
    case errors.Is(err, ledger.ErrBookingNotFound):
        return http.StatusNotFound, "booking not found"
    case errors.Is(err, ledger.ErrCapacityExceeded):
        return http.StatusConflict, "no available slots"
    case errors.Is(err, ledger.ErrAlreadyReleased):
        return http.StatusConflict, "booking already departed"
    case errors.Is(err, ledger.ErrAlreadyArrived):
        return http.StatusConflict, "arrival already recorded"
    case errors.Is(err, ledger.ErrBookingClosed):
        return http.StatusConflict, "only amount_paid can change after departure"
    case errors.Is(err, ledger.ErrInvalidCapacity):
        return http.StatusBadRequest, "total_slots cannot be below the number of active bookings"
    case errors.Is(err, ledger.ErrCorruptedState):
        return http.StatusInternalServerError, "slot inventory inconsistent; contact the operator"

    case errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound, "not found"
    case errors.Is(err, repository.ErrDuplicate):
        return http.StatusConflict, "already exists"
    case errors.Is(err, repository.ErrConflict):
        return http.StatusConflict, "concurrent update, retry"
    case repository.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded):
        return http.StatusServiceUnavailable, "service temporarily unavailable"
    }
    return http.StatusInternalServerError, "internal server error"
}

// badRequest is the 400 shorthand used by input validation.
func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// crossLot reports whether a body names a lot other than the caller's.
// The session's lot is never overridden by the body; a mismatch is
// answered with forbidden.
func crossLot(c echo.Context, named string) bool {
    return named != "" && named != middleware.LotID(c)
}

func forbidden(c echo.Context) error {
    return c.JSON(http.StatusForbidden, echo.Map{"error": "request names another parking lot"})
}
