// Package sqlxrepos implements the core repositories on PostgreSQL.
//
// Uniqueness invariants (role triple, one active enrollment, one in-progress
// attempt, one open guardian link) are enforced by unique indexes; unique
// violations are translated back into the owning package's conflict errors.
package sqlxrepos

import (
	"database/sql"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique index violation on the
// named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation && string(pqErr.Constraint) == constraint
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// NewDB wraps an open connection for the repositories in this package.
func NewDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}
