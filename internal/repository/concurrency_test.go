package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/parking-lot-admin/internal/database/dbtest"
)

func begin(t *testing.T, db *sql.DB) *sql.Tx {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

// contend runs write in its own goroutine on tx and checks that it is
// still waiting after a short pause, i.e. queued behind another writer.
func contend(t *testing.T, tx *sql.Tx, write func(tx *sql.Tx) error) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- write(tx) }()
	select {
	case err := <-done:
		t.Fatalf("second writer finished while the first held the lock: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	return done
}

func TestDecrementLastSlotAcrossConnections(t *testing.T) {
	db := dbtest.OpenConcurrent(t, 2)
	seedLot(t, db, "lot-1", "alice", 1)
	repo := NewLotRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first, second := begin(t, db), begin(t, db)
	if err := repo.DecrementAvailableTx(ctx, first, "lot-1", now); err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	done := contend(t, second, func(tx *sql.Tx) error { return repo.DecrementAvailableTx(ctx, tx, "lot-1", now) })
	if err := first.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("second decrement: got %v, want ErrNoCapacity", err)
	}
	second.Rollback()

	l, err := repo.GetByID(ctx, "lot-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.AvailableSlots != 0 {
		t.Fatalf("available = %d, want 0", l.AvailableSlots)
	}
}

func TestMarkDepartedAcrossConnections(t *testing.T) {
	db := dbtest.OpenConcurrent(t, 2)
	seedLot(t, db, "lot-1", "alice", 2)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newBooking("b1", "lot-1", "u1", now)) }); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, second := begin(t, db), begin(t, db)
	if err := repo.MarkDepartedTx(ctx, first, "b1", "lot-1", now); err != nil {
		t.Fatalf("first depart: %v", err)
	}
	done := contend(t, second, func(tx *sql.Tx) error { return repo.MarkDepartedTx(ctx, tx, "b1", "lot-1", now) })
	if err := first.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrConflict) {
		t.Fatalf("second depart: got %v, want ErrConflict", err)
	}
}

// A transaction that read the counters before another connection
// committed must not write on top of that stale read.
func TestWriteAfterStaleReadConflicts(t *testing.T) {
	db := dbtest.OpenConcurrent(t, 2)
	seedLot(t, db, "lot-1", "alice", 1)
	repo := NewLotRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := begin(t, db)
	seen, err := repo.GetByIDTx(ctx, stale, "lot-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if seen.AvailableSlots != 1 {
		t.Fatalf("available = %d, want 1", seen.AvailableSlots)
	}
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.DecrementAvailableTx(ctx, tx, "lot-1", now) }); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	err = repo.DecrementAvailableTx(ctx, stale, "lot-1", now)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("write after stale read: got %v, want ErrConflict", err)
	}
	if IsUnavailable(err) {
		t.Fatalf("lost race reported as outage: %v", err)
	}
}

func TestMarkDepartedIgnoresOtherLot(t *testing.T) {
	db := dbtest.Open(t)
	seedLot(t, db, "lot-1", "alice", 2)
	seedLot(t, db, "lot-2", "bob", 2)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := inTx(t, db, func(tx *sql.Tx) error { return repo.CreateTx(ctx, tx, newBooking("b1", "lot-1", "u1", now)) }); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := inTx(t, db, func(tx *sql.Tx) error { return repo.MarkDepartedTx(ctx, tx, "b1", "lot-2", now) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	b, err := repo.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.Departed() {
		t.Fatal("booking of lot-1 departed through lot-2")
	}
}
