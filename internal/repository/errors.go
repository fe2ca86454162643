// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// ledger and the handlers to distinguish between different failure
// scenarios without inspecting driver-specific errors.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing
// unique key, such as a second profile for the same lot or a taken
// admin username.
var ErrDuplicate = errors.New("duplicate entry")

// ErrConflict is returned when a conditional update matched no row
// because the stored state changed underneath the caller (a lost
// compare-and-swap). The caller may re-read and retry.
var ErrConflict = errors.New("conflict")

// ErrUnavailable signals that the store could not be reached or the
// operation timed out. Nothing was committed; the caller may retry with
// backoff.
var ErrUnavailable = errors.New("store unavailable")

// ErrNoCapacity is returned by the slot decrement when the lot has no
// available slot left.
var ErrNoCapacity = errors.New("no available slot")

// ErrCapacityCeiling is returned by the slot increment when the lot
// already reports every slot as available.
var ErrCapacityCeiling = errors.New("available slots already at capacity")

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can
// run inside or outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// wrap classifies a driver error into the sentinel taxonomy and prefixes
// it with the failing operation.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case isDuplicate(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case isMissingReference(err):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case isStaleSnapshot(err):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case isUnavailable(err):
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isMissingReference(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1452
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// isStaleSnapshot reports a write refused because the transaction read a
// snapshot another connection has since committed over (SQLite WAL).  It
// is a lost race, not an outage.
func isStaleSnapshot(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrBusySnapshot
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// IsUnavailable reports whether err is a transient store failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || isUnavailable(err)
}
