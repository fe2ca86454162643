package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/parking-lot-admin/internal/model"
)

// BookingRepo is the booking record store. Rows are inserted BOOKED and
// closed exactly once by MarkDepartedTx; after that only the revenue field
// may still be corrected. Every state-changing method takes the caller's
// transaction so the ledger can pair it with the slot counter update.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `booking_id, lot_id, user_id, slot_number, car_number, driver_name, booked_date,
	status, arrival_time, departure_time, amount_paid, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *model.Booking) error {
	return row.Scan(&b.BookingID, &b.LotID, &b.UserID, &b.SlotNumber, &b.CarNumber, &b.DriverName,
		&b.BookedDate, &b.Status, &b.ArrivalTime, &b.DepartureTime, &b.AmountPaid,
		&b.CreatedAt, &b.UpdatedAt)
}

// CreateTx inserts b within the scope of an existing transaction. The
// caller must set BookingID and Status, and commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.BookingID, b.LotID, b.UserID, b.SlotNumber, b.CarNumber, b.DriverName, b.BookedDate,
		b.Status, b.ArrivalTime, b.DepartureTime, b.AmountPaid, b.CreatedAt, b.UpdatedAt)
	return wrap("BookingRepo.CreateTx", err)
}

// GetByID returns a booking or ErrNotFound. Ownership is checked by the
// caller.
func (r *BookingRepo) GetByID(ctx context.Context, bookingID string) (model.Booking, error) {
	return getBooking(ctx, r.db, "BookingRepo.GetByID", bookingID)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, bookingID string) (model.Booking, error) {
	return getBooking(ctx, tx, "BookingRepo.GetByIDTx", bookingID)
}

func getBooking(ctx context.Context, q queryer, op, id string) (model.Booking, error) {
	var b model.Booking
	err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ?`, id), &b)
	return b, wrap(op, err)
}

// MarkDepartedTx moves a BOOKED booking of lotID to DEPARTED and stamps
// its departure time. The status predicate makes the transition a
// compare-and-swap: of two concurrent calls only one matches a row, the
// other receives ErrConflict. A booking of another lot never matches.
func (r *BookingRepo) MarkDepartedTx(ctx context.Context, tx *sql.Tx, bookingID, lotID string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings
		SET status = ?, departure_time = ?, updated_at = ?
		WHERE booking_id = ? AND lot_id = ? AND status = ?`,
		model.BookingDeparted, at, at, bookingID, lotID, model.BookingBooked)
	if err != nil {
		return wrap("BookingRepo.MarkDepartedTx", err)
	}
	return requireOneRow("BookingRepo.MarkDepartedTx", res, ErrConflict)
}

// SetArrivalTx stamps arrival_time on a BOOKED booking that has not
// arrived yet. ErrConflict means it already arrived or has departed.
func (r *BookingRepo) SetArrivalTx(ctx context.Context, tx *sql.Tx, bookingID string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings
		SET arrival_time = ?, updated_at = ?
		WHERE booking_id = ? AND status = ? AND arrival_time IS NULL`,
		at, at, bookingID, model.BookingBooked)
	if err != nil {
		return wrap("BookingRepo.SetArrivalTx", err)
	}
	return requireOneRow("BookingRepo.SetArrivalTx", res, ErrConflict)
}

// UpdateFieldsTx applies p to a booking. When wasDeparted is false the
// update is conditioned on the booking still being BOOKED, so a departure
// that commits first turns this into ErrConflict instead of editing a
// closed record.
func (r *BookingRepo) UpdateFieldsTx(ctx context.Context, tx *sql.Tx, bookingID string, p model.BookingPatch, wasDeparted bool, at time.Time) error {
	sets := []string{}
	args := []any{}
	if p.SlotNumber.Valid {
		sets = append(sets, "slot_number = ?")
		args = append(args, p.SlotNumber.Int64)
	}
	if p.CarNumber.Valid {
		sets = append(sets, "car_number = ?")
		args = append(args, p.CarNumber.String)
	}
	if p.DriverName.Valid {
		sets = append(sets, "driver_name = ?")
		args = append(args, p.DriverName.String)
	}
	if p.AmountPaid.Valid {
		sets = append(sets, "amount_paid = ?")
		args = append(args, p.AmountPaid.Float64)
	}
	if p.ArrivalTime.Valid {
		sets = append(sets, "arrival_time = ?")
		args = append(args, p.ArrivalTime.Time)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, at, bookingID)
	status := model.BookingBooked
	if wasDeparted {
		status = model.BookingDeparted
	}
	args = append(args, status)
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET "+strings.Join(sets, ", ")+" WHERE booking_id = ? AND status = ?", args...)
	if err != nil {
		return wrap("BookingRepo.UpdateFieldsTx", err)
	}
	return requireOneRow("BookingRepo.UpdateFieldsTx", res, ErrConflict)
}

// CountActiveTx counts the lot's BOOKED bookings inside the caller's
// transaction.
func (r *BookingRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, lotID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE lot_id = ? AND status = ?`, lotID, model.BookingBooked).Scan(&n)
	return n, wrap("BookingRepo.CountActiveTx", err)
}

// ListByLot returns every booking of a lot, oldest first.
func (r *BookingRepo) ListByLot(ctx context.Context, lotID string) ([]model.Booking, error) {
	return r.list(ctx, "BookingRepo.ListByLot",
		`SELECT `+bookingColumns+` FROM bookings WHERE lot_id = ? ORDER BY created_at, booking_id`, lotID)
}

// ListByUser returns a rider's bookings at one lot.
func (r *BookingRepo) ListByUser(ctx context.Context, lotID, userID string) ([]model.Booking, error) {
	return r.list(ctx, "BookingRepo.ListByUser",
		`SELECT `+bookingColumns+` FROM bookings WHERE lot_id = ? AND user_id = ? ORDER BY created_at, booking_id`,
		lotID, userID)
}

func (r *BookingRepo) list(ctx context.Context, op, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, b)
	}
	return out, wrap(op, rows.Err())
}

// BookingTotals is the aggregate behind the admin stats endpoint.
type BookingTotals struct {
	Total         int
	Active        int
	DistinctUsers int
	Revenue       float64
}

// Stats aggregates a lot's bookings. SUM skips NULL amounts and COALESCE
// turns an all-NULL or empty set into 0, so unpaid bookings count as zero
// revenue.
func (r *BookingRepo) Stats(ctx context.Context, lotID string) (BookingTotals, error) {
	var t BookingTotals
	err := r.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COUNT(DISTINCT user_id),
		COALESCE(SUM(amount_paid), 0)
		FROM bookings WHERE lot_id = ?`, model.BookingBooked, lotID).
		Scan(&t.Total, &t.Active, &t.DistinctUsers, &t.Revenue)
	return t, wrap("BookingRepo.Stats", err)
}
