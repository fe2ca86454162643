package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-lot-admin/internal/model"
)

// AdminRepo is the admin directory: it maps login names to lot identities
// and stores bcrypt hashes of admin secrets. Hashing happens in the auth
// layer; this repo never sees a plaintext secret.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

const adminColumns = "lot_id,user_name,password_hash,created_at,updated_at"

// Create inserts an admin. ErrDuplicate means the username is taken.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins ("+adminColumns+") VALUES (?,?,?,?,?)",
		a.LotID, a.UserName, a.PasswordHash, a.CreatedAt, a.UpdatedAt)
	return wrap("AdminRepo.Create", err)
}

// GetByUsername fetches an admin by exact, case-sensitive username.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (model.Admin, error) {
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE user_name=? LIMIT 1",
		username).Scan(&a.LotID, &a.UserName, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, wrap("AdminRepo.GetByUsername", err)
}

// GetByLotID fetches the admin that owns lotID.
func (r *AdminRepo) GetByLotID(ctx context.Context, lotID string) (model.Admin, error) {
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE lot_id=? LIMIT 1",
		lotID).Scan(&a.LotID, &a.UserName, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, wrap("AdminRepo.GetByLotID", err)
}

// UpdateSecret replaces the stored hash for lotID.
func (r *AdminRepo) UpdateSecret(ctx context.Context, lotID, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE admins SET password_hash=?, updated_at=? WHERE lot_id=?",
		hash, time.Now().UTC(), lotID)
	if err != nil {
		return wrap("AdminRepo.UpdateSecret", err)
	}
	return requireOneRow("AdminRepo.UpdateSecret", res, ErrNotFound)
}

// LookupUsername reports whether username exists and, when the admin has
// already created a lot, that lot's name.
func (r *AdminRepo) LookupUsername(ctx context.Context, username string) (bool, string, error) {
	var lotName sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT p.parking_lot_name FROM admins a
		 LEFT JOIN parking_lots p ON p.lot_id = a.lot_id
		 WHERE a.user_name = ? LIMIT 1`, username).Scan(&lotName)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", wrap("AdminRepo.LookupUsername", err)
	}
	return true, lotName.String, nil
}

// requireOneRow turns a zero-row result into the given sentinel.
func requireOneRow(op string, res sql.Result, zero error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return zero
	}
	return nil
}
