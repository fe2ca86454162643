package model

import (
    "time"

    "gopkg.in/guregu/null.v4"
)

// LotProfile is one physical parking lot.  The lot ID doubles as the
// identity of the admin that manages it, so there is exactly one profile
// per admin.
//
// Fields:
//  LotID          – primary key, equal to the owning admin's lot_id.
//  TotalSlots     – capacity ceiling, never negative.
//  AvailableSlots – free capacity; always 0 <= AvailableSlots <= TotalSlots
//                   and equal to TotalSlots minus the lot's BOOKED bookings.
//                   Only the ledger changes it.
//  Name .. IsActive – descriptive metadata, opaque to the ledger.
type LotProfile struct {
    LotID          string     `json:"location_id"`      // parking_lots.lot_id
    Name           string     `json:"parking_lot_name"` // parking_lots.parking_lot_name
    Address        string     `json:"address"`          // parking_lots.address
    State          string     `json:"state"`            // parking_lots.state
    District       string     `json:"district"`         // parking_lots.district
    Area           string     `json:"area"`             // parking_lots.area
    ContactNumber  string     `json:"contact_number"`   // parking_lots.contact_number
    URL            string     `json:"url"`              // parking_lots.url
    TotalSlots     int        `json:"total_slots"`      // parking_lots.total_slots
    AvailableSlots int        `json:"available_slots"`  // parking_lots.available_slots
    PricePerHour   float64    `json:"price_per_hour"`   // parking_lots.price_per_hour
    OpeningTime    string     `json:"opening_time"`     // parking_lots.opening_time (HH:MM)
    ClosingTime    string     `json:"closing_time"`     // parking_lots.closing_time (HH:MM)
    Latitude       null.Float `json:"latitude"`         // parking_lots.latitude (nullable)
    Longitude      null.Float `json:"longitude"`        // parking_lots.longitude (nullable)
    IsActive       bool       `json:"is_active"`        // parking_lots.is_active
    CreatedAt      time.Time  `json:"created_at"`       // parking_lots.created_at
    UpdatedAt      time.Time  `json:"updated_at"`       // parking_lots.updated_at
}

// OccupiedSlots is the capacity consumed by active bookings.
func (l LotProfile) OccupiedSlots() int { return l.TotalSlots - l.AvailableSlots }

// CapacityValid reports whether the slot counters satisfy
// 0 <= available <= total.
func (l LotProfile) CapacityValid() bool {
    return l.TotalSlots >= 0 && l.AvailableSlots >= 0 && l.AvailableSlots <= l.TotalSlots
}

// LotSummary is the public, unauthenticated view of a lot used for discovery.
type LotSummary struct {
    LotID          string `json:"location_id"`
    Name           string `json:"parking_lot_name"`
    UserName       string `json:"user_name"`
    State          string `json:"state"`
    District       string `json:"district"`
    Area           string `json:"area"`
    AvailableSlots int    `json:"available_slots"`
}

// LotStats aggregates a lot's booking history for the admin dashboard.
type LotStats struct {
    TotalBookings  int     `json:"totalBookings"`
    ActiveBookings int     `json:"activeBookings"`
    TotalUsers     int     `json:"totalUsers"`
    TotalRevenue   float64 `json:"totalRevenue"`
    AvailableSlots int     `json:"availableSlots"`
}
