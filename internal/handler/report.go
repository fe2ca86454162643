package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-lot-admin/internal/middleware"
    "github.com/iliyamo/parking-lot-admin/internal/model"
    "github.com/iliyamo/parking-lot-admin/internal/repository"
)

// ReportHandler serves the read-only dashboard views of a lot.
type ReportHandler struct {
    Base
    Lots     *repository.LotRepo
    Bookings *repository.BookingRepo
    Riders   *repository.RiderRepo
}

func NewReportHandler(base Base, lots *repository.LotRepo, bookings *repository.BookingRepo, riders *repository.RiderRepo) *ReportHandler {
    return &ReportHandler{Base: base, Lots: lots, Bookings: bookings, Riders: riders}
}

// Stats handles GET /admin/stats.
func (h *ReportHandler) Stats(c echo.Context) error {
    lotID := middleware.LotID(c)
    ctx, cancel := h.ctx(c)
    defer cancel()

    lot, err := h.Lots.GetByID(ctx, lotID)
    if err != nil {
        return h.fail(c, err)
    }
    t, err := h.Bookings.Stats(ctx, lotID)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, model.LotStats{
        TotalBookings:  t.Total,
        ActiveBookings: t.Active,
        TotalUsers:     t.DistinctUsers,
        TotalRevenue:   t.Revenue,
        AvailableSlots: lot.AvailableSlots,
    })
}

// Users handles GET /admin/users: every rider with a booking at the
// caller's lot, one entry per booking.  Bookings whose rider is unknown to
// the directory are left out.
func (h *ReportHandler) Users(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()

    list, err := h.Bookings.ListByLot(ctx, middleware.LotID(c))
    if err != nil {
        return h.fail(c, err)
    }
    ids := make([]string, 0, len(list))
    for _, b := range list {
        ids = append(ids, b.UserID)
    }
    riders, err := h.Riders.FindByIDs(ctx, ids)
    if err != nil {
        return h.fail(c, err)
    }
    out := make([]model.RiderBooking, 0, len(list))
    for _, b := range list {
        r, ok := riders[b.UserID]
        if !ok {
            continue
        }
        out = append(out, model.RiderBooking{Rider: r, BookingID: b.BookingID, DriverName: b.DriverName})
    }
    return c.JSON(http.StatusOK, out)
}
