// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into an audit log.
package queue

import (
    "time"

    "github.com/iliyamo/parking-lot-admin/internal/model"
)

// Event types, also used as the AMQP message type.
const (
    EventBookingReserved = "booking.reserved"
    EventBookingDeparted = "booking.departed"
)

// BookingEvent is published after a reservation or a departure has been
// committed.  It carries the post-commit slot counters so downstream
// consumers can log occupancy without querying the primary database.
type BookingEvent struct {
    Type           string `json:"type"`
    BookingID      string `json:"booking_id"`
    LotID          string `json:"lot_id"`
    UserID         string `json:"user_id"`
    SlotNumber     int    `json:"slot_number"`
    TotalSlots     int    `json:"total_slots"`
    AvailableSlots int    `json:"available_slots"`
    OccurredAt     string `json:"occurred_at"` // RFC 3339, UTC
}

// NewBookingEvent builds an event of the given type from a committed
// booking and the lot snapshot taken in the same transaction.
func NewBookingEvent(typ string, b model.Booking, lot model.LotProfile, at time.Time) BookingEvent {
    return BookingEvent{
        Type:           typ,
        BookingID:      b.BookingID,
        LotID:          b.LotID,
        UserID:         b.UserID,
        SlotNumber:     b.SlotNumber,
        TotalSlots:     lot.TotalSlots,
        AvailableSlots: lot.AvailableSlots,
        OccurredAt:     at.UTC().Format(time.RFC3339),
    }
}
