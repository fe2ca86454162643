package handler

import (
    "context"  // directory lookups
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // session expiry in responses

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/parking-lot-admin/internal/auth"       // credential verifier
    "github.com/iliyamo/parking-lot-admin/internal/middleware" // caller lot ID
    "github.com/iliyamo/parking-lot-admin/internal/model"      // admin record
)

// AdminLookup is the read side of the admin directory
// (*repository.AdminRepo in production).
type AdminLookup interface {
    LookupUsername(ctx context.Context, username string) (exists bool, lotName string, err error)
    GetByLotID(ctx context.Context, lotID string) (model.Admin, error)
}

// AuthHandler bundles dependencies for the admin identity endpoints.
type AuthHandler struct {
    Base
    Verifier *auth.Verifier
    Admins   AdminLookup
}

func NewAuthHandler(base Base, v *auth.Verifier, admins AdminLookup) *AuthHandler {
    return &AuthHandler{Base: base, Verifier: v, Admins: admins}
}

// ----- DTOs -----

type credentialsReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type adminDetails struct {
    ID             string `json:"id"`
    Username       string `json:"username"`
    ParkingLotName string `json:"parkingLotName,omitempty"`
}

type sessionResp struct {
    Success      bool         `json:"success"`
    Token        string       `json:"token"`
    ExpiresAt    time.Time    `json:"expires_at"`
    AdminDetails adminDetails `json:"adminDetails"`
}

// bindCredentials leaves the username as sent: Register normalises it in
// the verifier, Login must match it exactly.
func (h *AuthHandler) bindCredentials(c echo.Context) (credentialsReq, bool) {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        return req, false
    }
    return req, true
}

// Register handles POST /admin/register: create an admin identity with a
// fresh lot ID and return a session for it.
func (h *AuthHandler) Register(c echo.Context) error {
    req, ok := h.bindCredentials(c)
    if !ok {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    sess, err := h.Verifier.Register(ctx, req.Username, req.Password)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, sessionResp{
        Success:      true,
        Token:        sess.Token,
        ExpiresAt:    sess.ExpiresAt,
        AdminDetails: adminDetails{ID: sess.LotID, Username: sess.Username},
    })
}

// Login handles POST /admin/login.
func (h *AuthHandler) Login(c echo.Context) error {
    req, ok := h.bindCredentials(c)
    if !ok {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    sess, err := h.Verifier.Authenticate(ctx, req.Username, req.Password)
    if err != nil {
        return h.fail(c, err)
    }
    // The lot name is decoration; a failed lookup does not fail the login.
    _, lotName, err := h.Admins.LookupUsername(ctx, sess.Username)
    if err != nil {
        h.Log.Warn("login: lot name lookup failed", "lot_id", sess.LotID, "username", sess.Username, "err", err)
    }
    return c.JSON(http.StatusOK, sessionResp{
        Success:      true,
        Token:        sess.Token,
        ExpiresAt:    sess.ExpiresAt,
        AdminDetails: adminDetails{ID: sess.LotID, Username: sess.Username, ParkingLotName: lotName},
    })
}

// CheckUser handles GET /admin/check-user/:username.  It is public so the
// sign-up form can check availability.
func (h *AuthHandler) CheckUser(c echo.Context) error {
    name := strings.TrimSpace(c.Param("username"))
    if name == "" {
        return badRequest(c, "username is required")
    }
    ctx, cancel := h.ctx(c)
    defer cancel()

    exists, lotName, err := h.Admins.LookupUsername(ctx, name)
    if err != nil {
        return h.fail(c, err)
    }
    var data *adminDetails
    if exists {
        data = &adminDetails{Username: name, ParkingLotName: lotName}
    }
    return c.JSON(http.StatusOK, echo.Map{"exists": exists, "data": data})
}

// Profile handles GET /admin/profile.
func (h *AuthHandler) Profile(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    a, err := h.Admins.GetByLotID(ctx, middleware.LotID(c))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": a.LotID, "username": a.UserName})
}
