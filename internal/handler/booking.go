package handler

import (
    "encoding/json" // strict decoding of the booking update body
    "io"            // reading the raw body
    "net/http"      // HTTP status codes
    "sort"          // stable listing of rejected fields
    "strings"       // trimming and joining
    "time"          // booked_date parsing

    "github.com/labstack/echo/v4" // Echo web framework
    "gopkg.in/guregu/null.v4"     // optional request fields

    "github.com/iliyamo/parking-lot-admin/internal/ledger"     // slot inventory
    "github.com/iliyamo/parking-lot-admin/internal/middleware" // caller lot ID
    "github.com/iliyamo/parking-lot-admin/internal/model"      // booking types
    "github.com/iliyamo/parking-lot-admin/internal/repository" // booking and rider stores
)

// BookingHandler serves the booking endpoints.  Every mutation goes
// through the ledger; listings read the booking store directly, always
// filtered by the caller's lot.
type BookingHandler struct {
    Base
    Ledger   *ledger.Ledger
    Bookings *repository.BookingRepo
    Riders   *repository.RiderRepo
}

func NewBookingHandler(base Base, l *ledger.Ledger, bookings *repository.BookingRepo, riders *repository.RiderRepo) *BookingHandler {
    return &BookingHandler{Base: base, Ledger: l, Bookings: bookings, Riders: riders}
}

type createBookingReq struct {
    UserID      string     `json:"user_id"`
    SlotNumber  int        `json:"slot_number"`
    CarNumber   string     `json:"car_number"`
    DriverName  string     `json:"driver_name"`
    BookedDate  string     `json:"booked_date"` // YYYY-MM-DD, defaults to today
    ArrivalTime null.Time  `json:"actual_arrival_time"`
    AmountPaid  null.Float `json:"amount_paid"`
    Lot         string     `json:"parking_lot_location"`
}

type bookingRefReq struct {
    BookingID string `json:"booking_id"`
    Lot       string `json:"parking_lot_location"`
}

// updateBookingReq holds the only fields PUT /admin/bookings/:id accepts.
type updateBookingReq struct {
    SlotNumber  null.Int    `json:"slot_number"`
    CarNumber   null.String `json:"car_number"`
    DriverName  null.String `json:"driver_name"`
    AmountPaid  null.Float  `json:"amount_paid"`
    ArrivalTime null.Time   `json:"actual_arrival_time"`
}

var updatableBookingFields = map[string]bool{
    "slot_number": true, "car_number": true, "driver_name": true,
    "amount_paid": true, "actual_arrival_time": true,
}

type inventoryResp struct {
    Success           bool             `json:"success"`
    Booking           model.Booking    `json:"booking"`
    UpdatedParkingLot model.LotProfile `json:"updatedParkingLot"`
}

// Create handles POST /admin/bookings: reserve one slot of the caller's lot.
func (h *BookingHandler) Create(c echo.Context) error {
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if crossLot(c, req.Lot) {
        return forbidden(c)
    }
    req.UserID = strings.TrimSpace(req.UserID)
    if req.UserID == "" {
        return badRequest(c, "user_id is required")
    }
    if req.SlotNumber < 0 {
        return badRequest(c, "slot_number must not be negative")
    }
    if req.AmountPaid.Valid && req.AmountPaid.Float64 < 0 {
        return badRequest(c, "amount_paid must not be negative")
    }
    var booked time.Time
    if req.BookedDate != "" {
        d, err := time.Parse("2006-01-02", req.BookedDate)
        if err != nil {
            return badRequest(c, "booked_date must be YYYY-MM-DD")
        }
        booked = d
    }

    ctx, cancel := h.ctx(c)
    defer cancel()
    res, err := h.Ledger.Reserve(ctx, middleware.LotID(c), ledger.SlotRequest{
        UserID:      req.UserID,
        SlotNumber:  req.SlotNumber,
        CarNumber:   strings.TrimSpace(req.CarNumber),
        DriverName:  strings.TrimSpace(req.DriverName),
        BookedDate:  booked,
        ArrivalTime: req.ArrivalTime,
        AmountPaid:  req.AmountPaid,
    })
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, inventoryResp{Success: true, Booking: res.Booking, UpdatedParkingLot: res.Lot})
}

// bindRef decodes a {booking_id} body.  When done is true the rejection
// has already been written and err is its write result.
func (h *BookingHandler) bindRef(c echo.Context) (req bookingRefReq, done bool, err error) {
    if err := c.Bind(&req); err != nil {
        return req, true, badRequest(c, "invalid body")
    }
    if crossLot(c, req.Lot) {
        return req, true, forbidden(c)
    }
    req.BookingID = strings.TrimSpace(req.BookingID)
    if req.BookingID == "" {
        return req, true, badRequest(c, "booking_id is required")
    }
    return req, false, nil
}

// Departure handles POST /admin/bookings/departure: close the booking and
// return its slot.
func (h *BookingHandler) Departure(c echo.Context) error {
    req, done, err := h.bindRef(c)
    if done {
        return err
    }
    ctx, cancel := h.ctx(c)
    defer cancel()
    res, err := h.Ledger.Release(ctx, req.BookingID, middleware.LotID(c))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, inventoryResp{Success: true, Booking: res.Booking, UpdatedParkingLot: res.Lot})
}

// Arrival handles POST /admin/bookings/arrival.
func (h *BookingHandler) Arrival(c echo.Context) error {
    req, done, err := h.bindRef(c)
    if done {
        return err
    }
    ctx, cancel := h.ctx(c)
    defer cancel()
    b, err := h.Ledger.RecordArrival(ctx, req.BookingID, middleware.LotID(c))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "booking": b})
}

// Update handles PUT /admin/bookings/:id.  Only the allow-listed fields
// may appear in the body; anything else, including lot, status and
// departure fields, is rejected with 400 rather than ignored.
func (h *BookingHandler) Update(c echo.Context) error {
    raw, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<16))
    if err != nil {
        return badRequest(c, "invalid body")
    }
    var fields map[string]json.RawMessage
    if err := json.Unmarshal(raw, &fields); err != nil {
        return badRequest(c, "invalid body")
    }
    var rejected []string
    for k := range fields {
        if !updatableBookingFields[k] {
            rejected = append(rejected, k)
        }
    }
    if len(rejected) > 0 {
        sort.Strings(rejected)
        return badRequest(c, "fields cannot be updated: "+strings.Join(rejected, ", "))
    }
    var req updateBookingReq
    if err := json.Unmarshal(raw, &req); err != nil {
        return badRequest(c, "invalid field value")
    }
    if req.SlotNumber.Valid && req.SlotNumber.Int64 < 0 {
        return badRequest(c, "slot_number must not be negative")
    }
    if req.AmountPaid.Valid && req.AmountPaid.Float64 < 0 {
        return badRequest(c, "amount_paid must not be negative")
    }
    patch := model.BookingPatch{
        SlotNumber:  req.SlotNumber,
        CarNumber:   req.CarNumber,
        DriverName:  req.DriverName,
        AmountPaid:  req.AmountPaid,
        ArrivalTime: req.ArrivalTime,
    }
    if patch.Empty() {
        return badRequest(c, "nothing to update")
    }

    ctx, cancel := h.ctx(c)
    defer cancel()
    b, err := h.Ledger.UpdateBooking(ctx, c.Param("id"), middleware.LotID(c), patch)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Get handles GET /admin/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()
    b, err := h.Ledger.Booking(ctx, c.Param("id"), middleware.LotID(c))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// List handles GET /admin/bookings[?user_id=].  Each booking carries the
// rider's directory entry when one exists.
func (h *BookingHandler) List(c echo.Context) error {
    lotID := middleware.LotID(c)
    ctx, cancel := h.ctx(c)
    defer cancel()

    var (
        list []model.Booking
        err  error
    )
    if uid := strings.TrimSpace(c.QueryParam("user_id")); uid != "" {
        list, err = h.Bookings.ListByUser(ctx, lotID, uid)
    } else {
        list, err = h.Bookings.ListByLot(ctx, lotID)
    }
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
    out := make([]model.BookingView, 0, len(list))
    for _, b := range list {
        v := model.BookingView{Booking: b}
        if r, ok := riders[b.UserID]; ok {
            r := r
            v.Rider = &r
        }
        out = append(out, v)
    }
    return c.JSON(http.StatusOK, out)
}
