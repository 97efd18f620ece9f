package repository

import (
	"context"
	"time"

	"github.com/uaizouk/backoffice/internal/phone"
	"github.com/uaizouk/backoffice/internal/registration/domain"
	"gorm.io/gorm"
)

const registrationColumns = `id, full_name, cpf, email, phone, birth_date, state, city, total, base_total,
	discount_amount, fee_amount, fee_percentage, payment_method, installments, payment_status,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListBreakdownCandidates(ctx context.Context, db *gorm.DB, after domain.Cursor, limit int) ([]domain.Registration, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Registration{}).
		Where("base_total IS NULL OR (base_total = 0 AND fee_amount = 0 AND discount_amount = 0)")
	return r.page(stmt, after, limit)
}

func (r *repo) ListCreatedSince(ctx context.Context, db *gorm.DB, since time.Time, after domain.Cursor, limit int) ([]domain.Registration, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Registration{}).
		Where("created_at >= ?", since.UTC())
	return r.page(stmt, after, limit)
}

func (r *repo) page(stmt *gorm.DB, after domain.Cursor, limit int) ([]domain.Registration, error) {
	if !after.IsZero() {
		stmt = stmt.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var rows []domain.Registration
	if err := stmt.Select(registrationColumns).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindByCPF(ctx context.Context, db *gorm.DB, cpf string) ([]domain.Registration, error) {
	digits := phone.Digits(cpf)
	if digits == "" {
		return nil, domain.ErrInvalidCPF
	}
	var rows []domain.Registration
	err := db.WithContext(ctx).
		Model(&domain.Registration{}).
		Select(registrationColumns).
		Where("REPLACE(REPLACE(REPLACE(REPLACE(cpf, '.', ''), '-', ''), ' ', ''), '/', '') = ?", digits).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateBreakdown(ctx context.Context, db *gorm.DB, id int64, b domain.Breakdown, updatedAt time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE event_registrations
		 SET base_total = ?, discount_amount = ?, fee_amount = ?, fee_percentage = ?, updated_at = ?
		 WHERE id = ?`,
		b.BaseTotal,
		b.DiscountAmount,
		b.FeeAmount,
		b.FeePercentage,
		updatedAt.UTC(),
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) UpdatePhone(ctx context.Context, db *gorm.DB, id int64, phone string, updatedAt time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE event_registrations SET phone = ?, updated_at = ? WHERE id = ?`,
		phone,
		updatedAt.UTC(),
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
