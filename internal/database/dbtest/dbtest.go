// Package dbtest opens migrated SQLite stores for tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/iliyamo/parking-lot-admin/internal/database"
)

var seq atomic.Int64

// Open returns a fresh, fully migrated in-memory database that is closed
// when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("file:dbtest%d?mode=memory&cache=shared&_foreign_keys=on", seq.Add(1))
	db, err := database.OpenSQLite(name)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := database.Migrate(context.Background(), db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// OpenConcurrent returns a migrated file-backed WAL database whose pool
// holds up to conns connections, so transactions begun on it really run
// side by side. Writers queue on SQLite's busy timeout.
func OpenConcurrent(t testing.TB, conns int) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	if _, err := database.Migrate(context.Background(), db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
