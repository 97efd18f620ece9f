package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	ErrorClassNone                 = ""
	ErrorClassLockTimeout          = "db_lock_timeout"
	ErrorClassSerializationFailure = "serialization_failure"
	ErrorClassUniqueViolation      = "unique_violation"
	ErrorClassConnection           = "db_connection"
	ErrorClassQuery                = "db"
)

// ClassifyError maps a store error to a low-cardinality class, or
// ErrorClassNone when err does not come from the database.
func ClassifyError(err error) string {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorClassNone
	}
	if IsDuplicateKeyErr(err) {
		return ErrorClassUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "55P03":
			return ErrorClassLockTimeout
		case pgErr.Code == "40001":
			return ErrorClassSerializationFailure
		case strings.HasPrefix(pgErr.Code, "08"):
			return ErrorClassConnection
		}
		return ErrorClassQuery
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return ErrorClassConnection
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrInvalidValue) {
		return ErrorClassQuery
	}
	return ErrorClassNone
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 1062") || strings.Contains(msg, "UNIQUE constraint failed")
}
