package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ErrorClassNone},
		{err: gorm.ErrRecordNotFound, want: ErrorClassNone},
		{err: errors.New("boom"), want: ErrorClassNone},
		{err: &pgconn.PgError{Code: "55P03"}, want: ErrorClassLockTimeout},
		{err: fmt.Errorf("update: %w", &pgconn.PgError{Code: "40001"}), want: ErrorClassSerializationFailure},
		{err: &pgconn.PgError{Code: "23505"}, want: ErrorClassUniqueViolation},
		{err: &pgconn.PgError{Code: "08006"}, want: ErrorClassConnection},
		{err: &pgconn.PgError{Code: "22P02"}, want: ErrorClassQuery},
		{err: errors.New("UNIQUE constraint failed: event_registrations.id"), want: ErrorClassUniqueViolation},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyError(tc.err), "%v", tc.err)
	}
}

func TestDialect(t *testing.T) {
	for _, kind := range []string{"postgres", "mysql", "sqlite"} {
		d, err := Dialect(Config{Type: kind, Host: "db", Port: "5432", Name: "app", User: "app"})
		assert.NoError(t, err, kind)
		assert.NotNil(t, d, kind)
	}
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}
