package model

import "time"

// Admin is an operator account as stored in the `admins` table.  Each
// admin manages exactly one lot and the lot ID is the admin's identity key.
// The secret is only ever stored as a bcrypt hash.
//
// Fields:
//  LotID        – primary key; also the parking_lots.lot_id of the admin's lot.
//  UserName     – unique login name, compared case-sensitively.
//  PasswordHash – bcrypt hash of the admin secret.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Admin struct {
    LotID        string    // admins.lot_id
    UserName     string    // admins.user_name
    PasswordHash string    // admins.password_hash
    CreatedAt    time.Time // admins.created_at
    UpdatedAt    time.Time // admins.updated_at
}

// Rider is a driver known to the external rider directory (`users` table).
// The directory is read-only from this service.
type Rider struct {
    ID          string `json:"id"`
    FirstName   string `json:"first_name"`
    LastName    string `json:"last_name"`
    Email       string `json:"email"`
    PhoneNumber string `json:"phone_number"`
}

// RiderBooking is a rider paired with one of their bookings at a lot.
type RiderBooking struct {
    Rider
    BookingID  string `json:"booking_id"`
    DriverName string `json:"driver_name"`
}
