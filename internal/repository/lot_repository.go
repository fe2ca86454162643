package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-lot-admin/internal/model"
)

// LotRepo is the lot profile store. Descriptive fields are written through
// Create and UpdateProfile; the slot counters are only changed by the
// typed *Tx primitives below, each of which carries its bound check in the
// WHERE clause so check and write are a single atomic statement. Those
// primitives are reserved for the ledger.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo returns a new LotRepo bound to the given database.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

// DB exposes the handle so the ledger can open transactions.
func (r *LotRepo) DB() *sql.DB { return r.db }

const lotColumns = `lot_id, parking_lot_name, address, state, district, area, contact_number, url,
	total_slots, available_slots, price_per_hour, opening_time, closing_time,
	latitude, longitude, is_active, created_at, updated_at`

func scanLot(row interface{ Scan(...any) error }, l *model.LotProfile) error {
	return row.Scan(&l.LotID, &l.Name, &l.Address, &l.State, &l.District, &l.Area,
		&l.ContactNumber, &l.URL, &l.TotalSlots, &l.AvailableSlots, &l.PricePerHour,
		&l.OpeningTime, &l.ClosingTime, &l.Latitude, &l.Longitude, &l.IsActive,
		&l.CreatedAt, &l.UpdatedAt)
}

// Create inserts a new profile. A new lot has no bookings, so its
// available_slots always starts equal to total_slots. ErrDuplicate means
// the lot already has a profile; ErrNotFound means no admin owns lot_id.
func (r *LotRepo) Create(ctx context.Context, l *model.LotProfile) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	l.AvailableSlots = l.TotalSlots
	_, err := r.db.ExecContext(ctx, `INSERT INTO parking_lots (`+lotColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.LotID, l.Name, l.Address, l.State, l.District, l.Area, l.ContactNumber, l.URL,
		l.TotalSlots, l.AvailableSlots, l.PricePerHour, l.OpeningTime, l.ClosingTime,
		l.Latitude, l.Longitude, l.IsActive, l.CreatedAt, l.UpdatedAt)
	return wrap("LotRepo.Create", err)
}

// GetByID returns the profile for lotID or ErrNotFound.
func (r *LotRepo) GetByID(ctx context.Context, lotID string) (model.LotProfile, error) {
	return getLot(ctx, r.db, "LotRepo.GetByID", lotID)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *LotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, lotID string) (model.LotProfile, error) {
	return getLot(ctx, tx, "LotRepo.GetByIDTx", lotID)
}

func getLot(ctx context.Context, q queryer, op, lotID string) (model.LotProfile, error) {
	var l model.LotProfile
	err := scanLot(q.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM parking_lots WHERE lot_id = ?`, lotID), &l)
	return l, wrap(op, err)
}

// UpdateProfile writes the descriptive fields of l. total_slots and
// available_slots are deliberately absent from the statement.
func (r *LotRepo) UpdateProfile(ctx context.Context, l *model.LotProfile) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE parking_lots SET
		parking_lot_name = ?, address = ?, state = ?, district = ?, area = ?, contact_number = ?, url = ?,
		price_per_hour = ?, opening_time = ?, closing_time = ?, latitude = ?, longitude = ?, is_active = ?,
		updated_at = ?
		WHERE lot_id = ?`,
		l.Name, l.Address, l.State, l.District, l.Area, l.ContactNumber, l.URL,
		l.PricePerHour, l.OpeningTime, l.ClosingTime, l.Latitude, l.Longitude, l.IsActive,
		l.UpdatedAt, l.LotID)
	if err != nil {
		return wrap("LotRepo.UpdateProfile", err)
	}
	return requireOneRow("LotRepo.UpdateProfile", res, ErrNotFound)
}

// ListPublic returns every lot with its owner's username for discovery.
func (r *LotRepo) ListPublic(ctx context.Context) ([]model.LotSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT p.lot_id, p.parking_lot_name, a.user_name,
		p.state, p.district, p.area, p.available_slots
		FROM parking_lots p JOIN admins a ON a.lot_id = p.lot_id
		ORDER BY p.parking_lot_name, p.lot_id`)
	if err != nil {
		return nil, wrap("LotRepo.ListPublic", err)
	}
	defer rows.Close()
	out := []model.LotSummary{}
	for rows.Next() {
		var s model.LotSummary
		if err := rows.Scan(&s.LotID, &s.Name, &s.UserName, &s.State, &s.District, &s.Area, &s.AvailableSlots); err != nil {
			return nil, wrap("LotRepo.ListPublic", err)
		}
		out = append(out, s)
	}
	return out, wrap("LotRepo.ListPublic", rows.Err())
}

// DecrementAvailableTx takes one slot. The floor check and the decrement
// are the same statement, so two transactions racing for the last slot
// cannot both succeed: the loser matches no row and gets ErrNoCapacity.
func (r *LotRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, lotID string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE parking_lots
		SET available_slots = available_slots - 1, updated_at = ?
		WHERE lot_id = ? AND available_slots > 0`, at, lotID)
	if err != nil {
		return wrap("LotRepo.DecrementAvailableTx", err)
	}
	return requireOneRow("LotRepo.DecrementAvailableTx", res, ErrNoCapacity)
}

// IncrementAvailableTx returns one slot, refusing to go above total_slots.
// ErrCapacityCeiling means the counter already claims every slot is free
// while a booking still held one.
func (r *LotRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, lotID string, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE parking_lots
		SET available_slots = available_slots + 1, updated_at = ?
		WHERE lot_id = ? AND available_slots < total_slots`, at, lotID)
	if err != nil {
		return wrap("LotRepo.IncrementAvailableTx", err)
	}
	return requireOneRow("LotRepo.IncrementAvailableTx", res, ErrCapacityCeiling)
}

// SetCapacityTx replaces both counters with a compare-and-swap on the
// previously observed pair. ErrConflict means a reservation or release
// committed in between.
func (r *LotRepo) SetCapacityTx(ctx context.Context, tx *sql.Tx, lotID string, seen model.LotProfile, total, available int, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE parking_lots
		SET total_slots = ?, available_slots = ?, updated_at = ?
		WHERE lot_id = ? AND total_slots = ? AND available_slots = ?`,
		total, available, at, lotID, seen.TotalSlots, seen.AvailableSlots)
	if err != nil {
		return wrap("LotRepo.SetCapacityTx", err)
	}
	return requireOneRow("LotRepo.SetCapacityTx", res, ErrConflict)
}
