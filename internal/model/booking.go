package model

import (
    "time"

    "gopkg.in/guregu/null.v4"
)

// BookingState is the lifecycle stage of a booking.  A booking is created
// BOOKED and moves to DEPARTED exactly once; DEPARTED is terminal.
type BookingState string

const (
    BookingBooked   BookingState = "BOOKED"
    BookingDeparted BookingState = "DEPARTED"
)

// Valid reports whether s is a known state.
func (s BookingState) Valid() bool { return s == BookingBooked || s == BookingDeparted }

// Active reports whether a booking in this state occupies a slot.
func (s BookingState) Active() bool { return s == BookingBooked }

// Booking records one vehicle stay at a lot.
//
// Fields:
//  BookingID     – primary key, a UUID generated on creation.
//  LotID         – owning lot; never changes after creation.
//  UserID        – rider identifier in the external rider directory.
//  SlotNumber    – stall number written by the admin (occupancy is tracked in aggregate).
//  CarNumber     – licence plate, optional.
//  DriverName    – optional display name.
//  BookedDate    – the day the booking is for.
//  Status        – BOOKED or DEPARTED.
//  ArrivalTime   – set when the vehicle checks in; metadata only.
//  DepartureTime – set together with the DEPARTED transition.
//  AmountPaid    – optional; null counts as zero in revenue.
type Booking struct {
    BookingID     string       `json:"booking_id"`           // bookings.booking_id
    LotID         string       `json:"lot_id"`               // bookings.lot_id
    UserID        string       `json:"user_id"`              // bookings.user_id
    SlotNumber    int          `json:"slot_number"`          // bookings.slot_number
    CarNumber     string       `json:"car_number"`           // bookings.car_number
    DriverName    string       `json:"driver_name"`          // bookings.driver_name
    BookedDate    time.Time    `json:"booked_date"`          // bookings.booked_date
    Status        BookingState `json:"status"`               // bookings.status
    ArrivalTime   null.Time    `json:"actual_arrival_time"`  // bookings.arrival_time (nullable)
    DepartureTime null.Time    `json:"actual_departed_time"` // bookings.departure_time (nullable)
    AmountPaid    null.Float   `json:"amount_paid"`          // bookings.amount_paid (nullable)
    CreatedAt     time.Time    `json:"created_at"`           // bookings.created_at
    UpdatedAt     time.Time    `json:"updated_at"`           // bookings.updated_at
}

// Departed reports whether the booking has released its slot.
func (b Booking) Departed() bool { return b.Status == BookingDeparted }

// BookingView is a booking joined with the rider it belongs to, when the
// rider directory knows them.
type BookingView struct {
    Booking
    Rider *Rider `json:"rider,omitempty"`
}

// BookingPatch carries the admin-editable booking fields. A field is only
// written when its Valid flag is set.
type BookingPatch struct {
    SlotNumber  null.Int
    CarNumber   null.String
    DriverName  null.String
    AmountPaid  null.Float
    ArrivalTime null.Time
}

// Empty reports whether the patch changes nothing.
func (p BookingPatch) Empty() bool {
    return !p.SlotNumber.Valid && !p.CarNumber.Valid && !p.DriverName.Valid &&
        !p.AmountPaid.Valid && !p.ArrivalTime.Valid
}

// OnlyAmount reports whether amount_paid is the only field being changed.
func (p BookingPatch) OnlyAmount() bool {
    return p.AmountPaid.Valid && !p.SlotNumber.Valid && !p.CarNumber.Valid &&
        !p.DriverName.Valid && !p.ArrivalTime.Valid
}
