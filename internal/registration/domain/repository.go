package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository reads and updates event_registrations. List methods return rows
// ordered by created_at then id, strictly after the cursor.
type Repository interface {
	// ListBreakdownCandidates returns rows whose breakdown was never computed:
	// base_total is NULL, or base_total, fee_amount and discount_amount are all zero.
	ListBreakdownCandidates(ctx context.Context, db *gorm.DB, after Cursor, limit int) ([]Registration, error)
	ListCreatedSince(ctx context.Context, db *gorm.DB, since time.Time, after Cursor, limit int) ([]Registration, error)
	// FindByCPF matches on digits only, newest first.
	FindByCPF(ctx context.Context, db *gorm.DB, cpf string) ([]Registration, error)
	UpdateBreakdown(ctx context.Context, db *gorm.DB, id int64, b Breakdown, updatedAt time.Time) error
	UpdatePhone(ctx context.Context, db *gorm.DB, id int64, phone string, updatedAt time.Time) error
}

var (
	ErrNotFound   = errors.New("not_found")
	ErrInvalidCPF = errors.New("invalid_cpf")
)
