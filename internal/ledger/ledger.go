// Package ledger owns the slot inventory. It is the only code that changes
// a lot's available_slots and the only code that creates or closes a
// booking. Every mutation runs in one transaction that pairs the booking
// row change with the counter change, and the counter is moved only by
// the store's bound-checked primitives, so after each commit
//
//	0 <= available_slots <= total_slots
//	available_slots == total_slots - count(BOOKED bookings of the lot)
//
// holds for every lot.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot-admin/internal/model"
	"github.com/iliyamo/parking-lot-admin/internal/queue"
	"github.com/iliyamo/parking-lot-admin/internal/repository"
)

// EventPublisher receives an event after each committed reservation and
// departure.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// publishTimeout bounds the post-commit publish.
const publishTimeout = 3 * time.Second

// SlotRequest describes a new booking. The lot comes from the caller's
// session, never from the request.
type SlotRequest struct {
	UserID      string
	SlotNumber  int
	CarNumber   string
	DriverName  string
	BookedDate  time.Time // zero means today
	ArrivalTime null.Time
	AmountPaid  null.Float
}

// Reservation is a committed booking together with the lot counters as of
// the same commit.
type Reservation struct {
	Booking model.Booking
	Lot     model.LotProfile
}

// Ledger coordinates the booking and lot stores.
type Ledger struct {
	db       *sql.DB
	lots     *repository.LotRepo
	bookings *repository.BookingRepo
	events   EventPublisher
	log      *slog.Logger
	now      func() time.Time
}

// New returns a Ledger that opens its transactions on the lot store's
// database. events may be nil.
func New(lots *repository.LotRepo, bookings *repository.BookingRepo, events EventPublisher, log *slog.Logger) *Ledger {
	return &Ledger{db: lots.DB(), lots: lots, bookings: bookings, events: events, log: log, now: time.Now}
}

// WithClock replaces the clock used for timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Reserve takes one slot of lotID and records a BOOKED booking for it.
// ErrCapacityExceeded means the lot was full; nothing was written.
func (l *Ledger) Reserve(ctx context.Context, lotID string, req SlotRequest) (Reservation, error) {
	now := l.now().UTC()
	var out Reservation
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		// The bounded decrement is the transaction's first statement, so
		// the outcome rests on the row as it stands when the write lock is
		// taken, never on an earlier read.
		if err := l.lots.DecrementAvailableTx(ctx, tx, lotID, now); err != nil {
			if !errors.Is(err, repository.ErrNoCapacity) {
				return err
			}
			if _, err := l.lots.GetByIDTx(ctx, tx, lotID); err != nil {
				return lotErr(err)
			}
			return ErrCapacityExceeded
		}
		booked := req.BookedDate
		if booked.IsZero() {
			booked = now
		}
		b := model.Booking{
			BookingID:   uuid.NewString(),
			LotID:       lotID,
			UserID:      req.UserID,
			SlotNumber:  req.SlotNumber,
			CarNumber:   req.CarNumber,
			DriverName:  req.DriverName,
			BookedDate:  time.Date(booked.Year(), booked.Month(), booked.Day(), 0, 0, 0, 0, time.UTC),
			Status:      model.BookingBooked,
			ArrivalTime: req.ArrivalTime,
			AmountPaid:  req.AmountPaid,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := l.bookings.CreateTx(ctx, tx, &b); err != nil {
			return err
		}
		lot, err := l.lots.GetByIDTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		out = Reservation{Booking: b, Lot: lot}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	l.publish(ctx, queue.EventBookingReserved, out, now)
	return out, nil
}

// Release closes a BOOKED booking of lotID and returns its slot. Of two
// concurrent releases of the same booking exactly one succeeds; the other
// gets ErrAlreadyReleased.
func (l *Ledger) Release(ctx context.Context, bookingID, lotID string) (Reservation, error) {
	now := l.now().UTC()
	var out Reservation
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		// Status CAS first, as in Reserve. A miss is explained afterwards.
		if err := l.bookings.MarkDepartedTx(ctx, tx, bookingID, lotID, now); err != nil {
			if !errors.Is(err, repository.ErrConflict) {
				return err
			}
			b, err := l.ownedBooking(ctx, tx, bookingID, lotID)
			if err != nil {
				return err
			}
			if b.Departed() {
				return ErrAlreadyReleased
			}
			return repository.ErrConflict
		}
		b, err := l.bookings.GetByIDTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := l.lots.IncrementAvailableTx(ctx, tx, lotID, now); err != nil {
			if errors.Is(err, repository.ErrCapacityCeiling) {
				l.log.Error("ledger: release would exceed lot capacity; counter out of sync with bookings",
					"lot_id", lotID, "booking_id", bookingID)
				return ErrCorruptedState
			}
			return err
		}
		lot, err := l.lots.GetByIDTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		out = Reservation{Booking: b, Lot: lot}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	l.publish(ctx, queue.EventBookingDeparted, out, now)
	return out, nil
}

// UpdateCapacity sets the lot's total_slots to newTotal and recomputes
// available_slots from the active bookings. The write is a compare-and-swap
// on the counters read in the same transaction; a reserve or release
// committing in between yields repository.ErrConflict and the caller may
// retry.
func (l *Ledger) UpdateCapacity(ctx context.Context, lotID string, newTotal int) (model.LotProfile, error) {
	if newTotal < 0 {
		return model.LotProfile{}, fmt.Errorf("%w: total_slots must not be negative", ErrInvalidCapacity)
	}
	now := l.now().UTC()
	var out model.LotProfile
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		lot, err := l.lots.GetByIDTx(ctx, tx, lotID)
		if err != nil {
			return lotErr(err)
		}
		active, err := l.bookings.CountActiveTx(ctx, tx, lotID)
		if err != nil {
			return err
		}
		if lot.OccupiedSlots() != active {
			l.log.Error("ledger: slot counter disagrees with active bookings",
				"lot_id", lotID, "total", lot.TotalSlots, "available", lot.AvailableSlots, "active", active)
			return ErrCorruptedState
		}
		if newTotal < active {
			return fmt.Errorf("%w: %d bookings are active, total_slots cannot go below that", ErrInvalidCapacity, active)
		}
		if err := l.lots.SetCapacityTx(ctx, tx, lotID, lot, newTotal, newTotal-active, now); err != nil {
			return err
		}
		lot.TotalSlots = newTotal
		lot.AvailableSlots = newTotal - active
		lot.UpdatedAt = now
		out = lot
		return nil
	})
	return out, err
}

// RecordArrival stamps the arrival time on a BOOKED booking. Arrival is
// metadata only and does not touch capacity.
func (l *Ledger) RecordArrival(ctx context.Context, bookingID, lotID string) (model.Booking, error) {
	now := l.now().UTC()
	var out model.Booking
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		b, err := l.ownedBooking(ctx, tx, bookingID, lotID)
		if err != nil {
			return err
		}
		switch {
		case b.Departed():
			return ErrAlreadyReleased
		case b.ArrivalTime.Valid:
			return ErrAlreadyArrived
		}
		if err := l.bookings.SetArrivalTx(ctx, tx, bookingID, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyArrived
			}
			return err
		}
		b.ArrivalTime = null.TimeFrom(now)
		b.UpdatedAt = now
		out = b
		return nil
	})
	return out, err
}

// UpdateBooking applies an allow-listed field update to a booking of
// lotID. Once a booking has departed only amount_paid may still change;
// anything else is ErrBookingClosed. lot_id, user_id, status and the
// departure time are not part of the patch and cannot be written here.
func (l *Ledger) UpdateBooking(ctx context.Context, bookingID, lotID string, p model.BookingPatch) (model.Booking, error) {
	now := l.now().UTC()
	var out model.Booking
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		b, err := l.ownedBooking(ctx, tx, bookingID, lotID)
		if err != nil {
			return err
		}
		if p.Empty() {
			out = b
			return nil
		}
		if b.Departed() && !p.OnlyAmount() {
			return ErrBookingClosed
		}
		if err := l.bookings.UpdateFieldsTx(ctx, tx, bookingID, p, b.Departed(), now); err != nil {
			return err
		}
		out, err = l.bookings.GetByIDTx(ctx, tx, bookingID)
		return err
	})
	return out, err
}

// Booking returns one booking of lotID. A booking of another lot is
// ErrUnauthorized; its contents are not returned.
func (l *Ledger) Booking(ctx context.Context, bookingID, lotID string) (model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	if b.LotID != lotID {
		return model.Booking{}, ErrUnauthorized
	}
	return b, nil
}

func (l *Ledger) ownedBooking(ctx context.Context, tx *sql.Tx, bookingID, lotID string) (model.Booking, error) {
	b, err := l.bookings.GetByIDTx(ctx, tx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	if b.LotID != lotID {
		return model.Booking{}, ErrUnauthorized
	}
	return b, nil
}

// inTx runs fn in a transaction. Only the tx may be used inside fn: the
// embedded store runs on a single connection.
func (l *Ledger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", classify(err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}

func classify(err error) error {
	if repository.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

func lotErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLotNotFound
	}
	return err
}

func (l *Ledger) publish(ctx context.Context, typ string, r Reservation, at time.Time) {
	if l.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := l.events.Publish(ctx, queue.NewBookingEvent(typ, r.Booking, r.Lot, at)); err != nil {
		l.log.Warn("ledger: event publish failed", "type", typ, "booking_id", r.Booking.BookingID, "err", err)
	}
}
