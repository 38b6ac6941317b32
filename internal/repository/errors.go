// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// depending on the MySQL driver.  For example, ErrVersionConflict
// indicates that a match row changed between read and write, while
// ErrDuplicate signals that a unique key (email, nickname, location slug)
// is already taken.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned by match updates whose version no longer
// matches the stored row.  Services retry once on this error.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate entry")

// isDuplicate reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// notFound maps sql.ErrNoRows onto ErrNotFound and passes other errors
// through unchanged.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
