package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-lot-admin/internal/repository"
)

// PublicHandler serves unauthenticated discovery endpoints.  Only the
// summary view of a lot is exposed; contact details, prices and secrets
// stay behind the admin session.
type PublicHandler struct {
    Base
    Lots *repository.LotRepo
}

func NewPublicHandler(base Base, lots *repository.LotRepo) *PublicHandler {
    return &PublicHandler{Base: base, Lots: lots}
}

// ListLots handles GET /lots.
func (h *PublicHandler) ListLots(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()
    lots, err := h.Lots.ListPublic(ctx)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": len(lots), "lots": lots})
}
