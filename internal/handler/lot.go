package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "gopkg.in/guregu/null.v4"

    "github.com/iliyamo/parking-lot-admin/internal/auth"
    "github.com/iliyamo/parking-lot-admin/internal/ledger"
    "github.com/iliyamo/parking-lot-admin/internal/middleware"
    "github.com/iliyamo/parking-lot-admin/internal/model"
    "github.com/iliyamo/parking-lot-admin/internal/repository"
)

// LotHandler serves the caller's own lot profile.  Descriptive fields are
// written directly; slot counts only change through the ledger.
type LotHandler struct {
    Base
    Lots     *repository.LotRepo
    Ledger   *ledger.Ledger
    Verifier *auth.Verifier
}

func NewLotHandler(base Base, lots *repository.LotRepo, l *ledger.Ledger, v *auth.Verifier) *LotHandler {
    return &LotHandler{Base: base, Lots: lots, Ledger: l, Verifier: v}
}

// lotReq is the body of POST and PUT /admin/parking-lot.  Every field is
// optional at the JSON level so PUT can tell "absent" from "zero".
type lotReq struct {
    LotID          null.String `json:"location_id"`
    Name           null.String `json:"parking_lot_name"`
    Address        null.String `json:"address"`
    State          null.String `json:"state"`
    District       null.String `json:"district"`
    Area           null.String `json:"area"`
    ContactNumber  null.String `json:"contact_number"`
    URL            null.String `json:"url"`
    TotalSlots     null.Int    `json:"total_slots"`
    AvailableSlots null.Int    `json:"available_slots"`
    PricePerHour   null.Float  `json:"price_per_hour"`
    OpeningTime    null.String `json:"opening_time"`
    ClosingTime    null.String `json:"closing_time"`
    Latitude       null.Float  `json:"latitude"`
    Longitude      null.Float  `json:"longitude"`
    IsActive       null.Bool   `json:"is_active"`
    Password       null.String `json:"password"`
}

// apply copies the present descriptive fields onto l.
func (r lotReq) apply(l *model.LotProfile) {
    set := func(dst *string, v null.String) {
        if v.Valid {
            *dst = strings.TrimSpace(v.String)
        }
    }
    set(&l.Name, r.Name)
    set(&l.Address, r.Address)
    set(&l.State, r.State)
    set(&l.District, r.District)
    set(&l.Area, r.Area)
    set(&l.ContactNumber, r.ContactNumber)
    set(&l.URL, r.URL)
    set(&l.OpeningTime, r.OpeningTime)
    set(&l.ClosingTime, r.ClosingTime)
    if r.PricePerHour.Valid {
        l.PricePerHour = r.PricePerHour.Float64
    }
    if r.Latitude.Valid {
        l.Latitude = r.Latitude
    }
    if r.Longitude.Valid {
        l.Longitude = r.Longitude
    }
    if r.IsActive.Valid {
        l.IsActive = r.IsActive.Bool
    }
}

// validateProfile checks the descriptive fields of l.
func validateProfile(l model.LotProfile) string {
    switch {
    case l.Name == "" || l.Address == "" || l.State == "" || l.District == "" || l.Area == "":
        return "parking_lot_name, address, state, district and area are required"
    case l.PricePerHour < 0:
        return "price_per_hour must not be negative"
    case !validClock(l.OpeningTime) || !validClock(l.ClosingTime):
        return "opening_time and closing_time must be HH:MM"
    case l.Latitude.Valid && (l.Latitude.Float64 < -90 || l.Latitude.Float64 > 90):
        return "latitude out of range"
    case l.Longitude.Valid && (l.Longitude.Float64 < -180 || l.Longitude.Float64 > 180):
        return "longitude out of range"
    }
    return ""
}

func validClock(s string) bool {
    if s == "" {
        return true
    }
    _, err := time.Parse("15:04", s)
    return err == nil
}

// Create handles POST /admin/parking-lot.  The profile is always created
// for the caller's own lot, starting with every slot available.
func (h *LotHandler) Create(c echo.Context) error {
    var req lotReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if crossLot(c, req.LotID.String) {
        return forbidden(c)
    }
    if !req.TotalSlots.Valid || req.TotalSlots.Int64 < 0 {
        return badRequest(c, "total_slots is required and must not be negative")
    }
    if req.AvailableSlots.Valid && req.AvailableSlots.Int64 != req.TotalSlots.Int64 {
        return badRequest(c, "a new parking lot starts with available_slots equal to total_slots")
    }

    lot := model.LotProfile{LotID: middleware.LotID(c), TotalSlots: int(req.TotalSlots.Int64), IsActive: true}
    req.apply(&lot)
    if msg := validateProfile(lot); msg != "" {
        return badRequest(c, msg)
    }

    ctx, cancel := h.ctx(c)
    defer cancel()
    if err := h.Lots.Create(ctx, &lot); err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, lot)
}

// Get handles GET /admin/parking-lot.
func (h *LotHandler) Get(c echo.Context) error {
    ctx, cancel := h.ctx(c)
    defer cancel()
    lot, err := h.Lots.GetByID(ctx, middleware.LotID(c))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, lot)
}

// Update handles PUT /admin/parking-lot.  total_slots goes through the
// ledger, which recomputes available_slots from the active bookings; a
// client-supplied available_slots is only accepted when it equals that
// derived value.  A non-empty password re-hashes the admin secret.
func (h *LotHandler) Update(c echo.Context) error {
    var req lotReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if crossLot(c, req.LotID.String) {
        return forbidden(c)
    }
    lotID := middleware.LotID(c)
    ctx, cancel := h.ctx(c)
    defer cancel()

    lot, err := h.Lots.GetByID(ctx, lotID)
    if err != nil {
        return h.fail(c, err)
    }
    req.apply(&lot)
    if msg := validateProfile(lot); msg != "" {
        return badRequest(c, msg)
    }
    if req.TotalSlots.Valid && req.TotalSlots.Int64 < 0 {
        return badRequest(c, "total_slots must not be negative")
    }
    if req.AvailableSlots.Valid {
        want := lot.AvailableSlots
        if req.TotalSlots.Valid {
            want = int(req.TotalSlots.Int64) - lot.OccupiedSlots()
        }
        if int(req.AvailableSlots.Int64) != want {
            return badRequest(c, "available_slots is derived from total_slots and active bookings")
        }
    }

    if req.TotalSlots.Valid && int(req.TotalSlots.Int64) != lot.TotalSlots {
        updated, err := h.Ledger.UpdateCapacity(ctx, lotID, int(req.TotalSlots.Int64))
        if err != nil {
            return h.fail(c, err)
        }
        lot.TotalSlots, lot.AvailableSlots = updated.TotalSlots, updated.AvailableSlots
    }
    if err := h.Lots.UpdateProfile(ctx, &lot); err != nil {
        return h.fail(c, err)
    }
    if req.Password.Valid && req.Password.String != "" {
        if err := h.Verifier.ChangeSecret(ctx, lotID, req.Password.String); err != nil {
            return h.fail(c, err)
        }
    }
    fresh, err := h.Lots.GetByID(ctx, lotID)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, fresh)
}
