package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot-admin/internal/database/dbtest"
	"github.com/iliyamo/parking-lot-admin/internal/model"
)

func seedLot(t *testing.T, db *sql.DB, lotID, user string, total int) {
	t.Helper()
	ctx := context.Background()
	if err := NewAdminRepo(db).Create(ctx, &model.Admin{LotID: lotID, UserName: user, PasswordHash: "x"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := NewLotRepo(db).Create(ctx, &model.LotProfile{LotID: lotID, Name: "Lot " + user, TotalSlots: total, IsActive: true}); err != nil {
		t.Fatalf("create lot: %v", err)
	}
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newBooking(id, lotID, userID string, at time.Time) *model.Booking {
	return &model.Booking{
		BookingID: id, LotID: lotID, UserID: userID, SlotNumber: 1,
		BookedDate: at.Truncate(24 * time.Hour), Status: model.BookingBooked,
		CreatedAt: at, UpdatedAt: at,
	}
}

func TestLotCreateStartsFull(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 5)

	l, err := NewLotRepo(db).GetByID(context.Background(), "lot-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.TotalSlots != 5 || l.AvailableSlots != 5 {
		t.Fatalf("got total=%d available=%d, want 5/5", l.TotalSlots, l.AvailableSlots)
	}
}

func TestLotCreateDuplicate(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 5)

	err := NewLotRepo(db).Create(context.Background(), &model.LotProfile{LotID: "lot-1", Name: "again", TotalSlots: 1})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
}

func TestLotCreateWithoutAdmin(t *testing.T) {
	db := dbtest.Open(t)
	err := NewLotRepo(db).Create(context.Background(), &model.LotProfile{LotID: "ghost", Name: "x", TotalSlots: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestGetMissingLot(t *testing.T) {
	db := dbtest.Open(t)
	if _, err := NewLotRepo(db).GetByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateProfileLeavesCounters(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 3)
	repo := NewLotRepo(db)
	ctx := context.Background()

	l, _ := repo.GetByID(ctx, "lot-1")
	l.Name = "Renamed"
	l.TotalSlots = 100
	l.AvailableSlots = 100
	l.Latitude = null.FloatFrom(12.5)
	if err := repo.UpdateProfile(ctx, &l); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repo.GetByID(ctx, "lot-1")
	if got.Name != "Renamed" || got.Latitude.Float64 != 12.5 {
		t.Fatalf("descriptive fields not written: %+v", got)
	}
	if got.TotalSlots != 3 || got.AvailableSlots != 3 {
		t.Fatalf("counters changed to %d/%d", got.TotalSlots, got.AvailableSlots)
	}
}

func TestDecrementStopsAtZero(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 1)
	repo := NewLotRepo(db)
	now := time.Now().UTC()

	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.DecrementAvailableTx(context.Background(), tx, "lot-1", now) }); err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	err := inTx(t, db, func(tx *sql.Tx) error { return repo.DecrementAvailableTx(context.Background(), tx, "lot-1", now) })
	if !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("got %v, want ErrNoCapacity", err)
	}
	l, _ := repo.GetByID(context.Background(), "lot-1")
	if l.AvailableSlots != 0 {
		t.Fatalf("available = %d, want 0", l.AvailableSlots)
	}
}

func TestIncrementStopsAtTotal(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 2)
	repo := NewLotRepo(db)

	err := inTx(t, db, func(tx *sql.Tx) error {
		return repo.IncrementAvailableTx(context.Background(), tx, "lot-1", time.Now().UTC())
	})
	if !errors.Is(err, ErrCapacityCeiling) {
		t.Fatalf("got %v, want ErrCapacityCeiling", err)
	}
}

func TestSetCapacityCompareAndSwap(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 4)
	repo := NewLotRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seen, _ := repo.GetByID(ctx, "lot-1")
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.DecrementAvailableTx(ctx, tx, "lot-1", now) }); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	err := inTx(t, db, func(tx *sql.Tx) error { return repo.SetCapacityTx(ctx, tx, "lot-1", seen, 10, 10, now) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("stale swap: got %v, want ErrConflict", err)
	}

	seen, _ = repo.GetByID(ctx, "lot-1")
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.SetCapacityTx(ctx, tx, "lot-1", seen, 10, 9, now) }); err != nil {
		t.Fatalf("fresh swap: %v", err)
	}
	got, _ := repo.GetByID(ctx, "lot-1")
	if got.TotalSlots != 10 || got.AvailableSlots != 9 {
		t.Fatalf("got %d/%d, want 10/9", got.TotalSlots, got.AvailableSlots)
	}
}

func TestListPublicJoinsOwner(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 2)
	seedLot(t, db, "lot-2", "bob", 3)

	lots, err := NewLotRepo(db).ListPublic(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lots) != 2 || lots[0].UserName != "alice" || lots[1].AvailableSlots != 3 {
		t.Fatalf("unexpected listing: %+v", lots)
	}
}

func TestAdminUsernameIsUniqueAndCaseSensitive(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewAdminRepo(db)
	ctx := context.Background()
	if err := repo.Create(ctx, &model.Admin{LotID: "a", UserName: "alice", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &model.Admin{LotID: "b", UserName: "alice", PasswordHash: "h"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
	if _, err := repo.GetByUsername(ctx, "ALICE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("case-folded lookup: got %v, want ErrNotFound", err)
	}
}

func TestLookupUsername(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewAdminRepo(db)
	ctx := context.Background()
	if err := repo.Create(ctx, &model.Admin{LotID: "a", UserName: "alice", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, name, err := repo.LookupUsername(ctx, "alice")
	if err != nil || !ok || name != "" {
		t.Fatalf("before lot: ok=%v name=%q err=%v", ok, name, err)
	}
	if err := NewLotRepo(db).Create(ctx, &model.LotProfile{LotID: "a", Name: "Central", TotalSlots: 1}); err != nil {
		t.Fatalf("create lot: %v", err)
	}
	ok, name, _ = repo.LookupUsername(ctx, "alice")
	if !ok || name != "Central" {
		t.Fatalf("after lot: ok=%v name=%q", ok, name)
	}
	if ok, _, _ := repo.LookupUsername(ctx, "nobody"); ok {
		t.Fatal("unknown username reported as existing")
	}
}

func TestMarkDepartedOnlyOnce(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 2)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newBooking("b1", "lot-1", "u1", now)) }); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.MarkDepartedTx(ctx, tx, "b1", "lot-1", now) }); err != nil {
		t.Fatalf("depart: %v", err)
	}
	err := inTx(t, db, func(tx *sql.Tx) error { return repo.MarkDepartedTx(ctx, tx, "b1", "lot-1", now) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second depart: got %v, want ErrConflict", err)
	}
	b, err := repo.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !b.Departed() || !b.DepartureTime.Valid {
		t.Fatalf("booking not departed: %+v", b)
	}
}

func TestSetArrivalOnlyOnce(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 2)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newBooking("b1", "lot-1", "u1", now)) })
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.SetArrivalTx(ctx, tx, "b1", now) }); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.SetArrivalTx(ctx, tx, "b1", now) }); !errors.Is(err, ErrConflict) {
		t.Fatalf("second arrival: got %v, want ErrConflict", err)
	}
}

func TestUpdateFieldsRespectsStatus(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 2)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newBooking("b1", "lot-1", "u1", now)) })
	patch := model.BookingPatch{CarNumber: null.StringFrom("KA-01"), SlotNumber: null.IntFrom(7)}
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.UpdateFieldsTx(ctx, tx, "b1", patch, false, now) }); err != nil {
		t.Fatalf("update: %v", err)
	}
	b, _ := repo.GetByID(ctx, "b1")
	if b.CarNumber != "KA-01" || b.SlotNumber != 7 {
		t.Fatalf("fields not written: %+v", b)
	}

	_ = inTx(t, db, func(tx *sql.Tx) error { return repo.MarkDepartedTx(ctx, tx, "b1", "lot-1", now) })
	err := inTx(t, db, func(tx *sql.Tx) error { return repo.UpdateFieldsTx(ctx, tx, "b1", patch, false, now) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("update assuming BOOKED after departure: got %v, want ErrConflict", err)
	}
}

func TestStatsTreatsMissingAmountAsZero(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 5)
	seedLot(t, db, "lot-2", "bob", 5)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	b1 := newBooking("b1", "lot-1", "u1", now)
	b1.AmountPaid = null.FloatFrom(40)
	b2 := newBooking("b2", "lot-1", "u1", now)
	b3 := newBooking("b3", "lot-1", "u2", now)
	b3.AmountPaid = null.FloatFrom(2.5)
	other := newBooking("b4", "lot-2", "u3", now)
	other.AmountPaid = null.FloatFrom(1000)
	for _, b := range []*model.Booking{b1, b2, b3, other} {
		b := b
		if err := inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, b) }); err != nil {
			t.Fatalf("create %s: %v", b.BookingID, err)
		}
	}
	_ = inTx(t, db, func(tx *sql.Tx) error { return repo.MarkDepartedTx(ctx, tx, "b1", "lot-1", now) })

	st, err := repo.Stats(ctx, "lot-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := BookingTotals{Total: 3, Active: 2, DistinctUsers: 2, Revenue: 42.5}
	if st != want {
		t.Fatalf("got %+v, want %+v", st, want)
	}

	empty, err := repo.Stats(ctx, "lot-unknown")
	if err != nil || empty != (BookingTotals{}) {
		t.Fatalf("empty lot: %+v %v", empty, err)
	}
}

func TestListByUserScopesToLot(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 5)
	seedLot(t, db, "lot-2", "bob", 5)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, b := range []*model.Booking{
		newBooking("b1", "lot-1", "u1", now),
		newBooking("b2", "lot-2", "u1", now),
		newBooking("b3", "lot-1", "u2", now),
	} {
		b := b
		_ = inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, b) })
	}
	got, err := repo.ListByUser(ctx, "lot-1", "u1")
	if err != nil || len(got) != 1 || got[0].BookingID != "b1" {
		t.Fatalf("got %+v %v", got, err)
	}
	all, _ := repo.ListByLot(ctx, "lot-1")
	if len(all) != 2 {
		t.Fatalf("lot-1 has %d bookings, want 2", len(all))
	}
}

func TestRiderFindByIDs(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO users (id, first_name, last_name, email, phone_number)
		VALUES ('u1', 'Ann', 'Lee', 'ann@example.com', '555'), ('u2', 'Bo', 'Kim', '', '')`); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	got, err := NewRiderRepo(db).FindByIDs(ctx, []string{"u1", "u1", "missing"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got["u1"].FirstName != "Ann" {
		t.Fatalf("got %+v", got)
	}
	empty, err := NewRiderRepo(db).FindByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty ids: %+v %v", empty, err)
	}
}
