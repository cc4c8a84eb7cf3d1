package db

import (
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/teranos/modx/errors"
)

var (
	// ErrDatabaseClosed marks a store call made after the database was closed.
	ErrDatabaseClosed = errors.New("database is closed")

	// ErrKeyConflict marks a write that hit an existing (collection, key) row.
	ErrKeyConflict = errors.New("document key already exists")
)

// IsDatabaseClosed reports whether err means the connection is gone. The
// sql package returns its own unwrapped error for this, so the message is
// checked as well.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// IsKeyConflict reports whether err is a primary key violation on the
// documents table, either raw from the driver or marked with ErrKeyConflict.
func IsKeyConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKeyConflict) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
