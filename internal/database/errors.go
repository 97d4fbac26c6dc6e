package database

import (
	"database/sql"
	"errors"

	"eyegic/internal/domain"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrConcurrentModification = &domain.Error{Kind: domain.KindConflict, Reason: "booking was modified concurrently"}
	ErrNotAvailable           = &domain.Error{Kind: domain.KindUnavailable, Reason: "rental item is not available"}
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
