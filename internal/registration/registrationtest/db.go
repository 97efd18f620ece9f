// Package registrationtest provides an in-memory event_registrations store for tests.
package registrationtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/uaizouk/backoffice/internal/registration/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS event_registrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	cpf TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT,
	birth_date DATE,
	state TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	total NUMERIC NOT NULL,
	base_total NUMERIC,
	discount_amount NUMERIC NOT NULL DEFAULT 0,
	fee_amount NUMERIC NOT NULL DEFAULT 0,
	fee_percentage NUMERIC NOT NULL DEFAULT 0,
	payment_method TEXT NOT NULL,
	installments INTEGER NOT NULL DEFAULT 1,
	payment_status TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// OpenDB returns a fresh database private to the calling test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Seed is the minimal shape needed to insert a registration.
type Seed struct {
	FullName      string
	CPF           string
	Email         string
	Phone         *string
	Total         string
	BaseTotal     *string
	PaymentMethod string
	Installments  int
	CreatedAt     time.Time
}

// Insert stores the seed and returns its id.
func Insert(t *testing.T, db *gorm.DB, s Seed) int64 {
	t.Helper()
	if s.FullName == "" {
		s.FullName = "Participante"
	}
	if s.PaymentMethod == "" {
		s.PaymentMethod = "pix"
	}
	if s.Installments == 0 {
		s.Installments = 1
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	row := domain.Registration{
		FullName:      s.FullName,
		CPF:           s.CPF,
		Email:         s.Email,
		Phone:         s.Phone,
		Total:         decimal.RequireFromString(s.Total),
		PaymentMethod: s.PaymentMethod,
		Installments:  s.Installments,
		PaymentStatus: "CONFIRMED",
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.CreatedAt.UTC(),
	}
	if s.BaseTotal != nil {
		row.BaseTotal = decimal.NewNullDecimal(decimal.RequireFromString(*s.BaseTotal))
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("insert registration: %v", err)
	}
	return row.ID
}

// Get loads one row by id.
func Get(t *testing.T, db *gorm.DB, id int64) domain.Registration {
	t.Helper()
	var row domain.Registration
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		t.Fatalf("load registration %d: %v", id, err)
	}
	return row
}

func Ptr(s string) *string {
	return &s
}
