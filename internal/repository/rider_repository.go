package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/parking-lot-admin/internal/model"
)

// RiderRepo reads the rider directory. Riders are registered by another
// service; this repo never writes to the users table.
type RiderRepo struct{ DB *sql.DB }

func NewRiderRepo(db *sql.DB) *RiderRepo { return &RiderRepo{DB: db} }

// FindByIDs returns the riders whose ids appear in ids, keyed by id.
// Unknown ids are simply absent from the map.
func (r *RiderRepo) FindByIDs(ctx context.Context, ids []string) (map[string]model.Rider, error) {
	out := make(map[string]model.Rider, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	seen := make(map[string]bool, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			args = append(args, id)
		}
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, first_name, last_name, email, phone_number FROM users WHERE id IN ("+marks+")", args...)
	if err != nil {
		return nil, wrap("RiderRepo.FindByIDs", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u model.Rider
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber); err != nil {
			return nil, wrap("RiderRepo.FindByIDs", err)
		}
		out[u.ID] = u
	}
	return out, wrap("RiderRepo.FindByIDs", rows.Err())
}
