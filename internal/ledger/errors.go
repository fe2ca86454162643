package ledger

import "errors"

var (
	ErrLotNotFound      = errors.New("lot not found")
	ErrCapacityExceeded = errors.New("no available slot")
	ErrBookingNotFound  = errors.New("booking not found")
	// ErrUnauthorized means the booking belongs to a different lot than
	// the caller's session.
	ErrUnauthorized    = errors.New("booking belongs to another lot")
	ErrAlreadyReleased = errors.New("booking already released")
	ErrInvalidCapacity = errors.New("invalid capacity")
	// ErrCorruptedState means the stored slot counter no longer matches the
	// lot's active bookings. It is never a normal race outcome.
	ErrCorruptedState = errors.New("slot counter inconsistent with bookings")
	ErrAlreadyArrived = errors.New("arrival already recorded")
	// ErrBookingClosed means a field other than amount_paid was edited on a
	// departed booking.
	ErrBookingClosed = errors.New("booking is closed")
)
