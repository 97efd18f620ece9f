package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uaizouk/backoffice/internal/registration/domain"
	"github.com/uaizouk/backoffice/internal/registration/registrationtest"
	"github.com/uaizouk/backoffice/internal/registration/repository"
)

func TestListBreakdownCandidates(t *testing.T) {
	db := registrationtest.OpenDB(t)
	repo := repository.Provide()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	nullBase := registrationtest.Insert(t, db, registrationtest.Seed{Total: "100.00", CreatedAt: base})
	zeroBase := registrationtest.Insert(t, db, registrationtest.Seed{Total: "200.00", BaseTotal: registrationtest.Ptr("0"), CreatedAt: base.Add(time.Minute)})
	registrationtest.Insert(t, db, registrationtest.Seed{Total: "100.00", BaseTotal: registrationtest.Ptr("105.26"), CreatedAt: base.Add(2 * time.Minute)})
	sameTime := registrationtest.Insert(t, db, registrationtest.Seed{Total: "50.00", CreatedAt: base.Add(time.Minute)})

	rows, err := repo.ListBreakdownCandidates(ctx, db, domain.Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{nullBase, zeroBase, sameTime}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.False(t, rows[0].BaseTotal.Valid)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("100")))

	page1, err := repo.ListBreakdownCandidates(ctx, db, domain.Cursor{}, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := repo.ListBreakdownCandidates(ctx, db, domain.CursorAfter(page1[1]), 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, sameTime, page2[0].ID)
}

func TestUpdateBreakdownRemovesCandidate(t *testing.T) {
	db := registrationtest.OpenDB(t)
	repo := repository.Provide()
	ctx := context.Background()

	id := registrationtest.Insert(t, db, registrationtest.Seed{Total: "100.00"})
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	err := repo.UpdateBreakdown(ctx, db, id, domain.Breakdown{
		BaseTotal:      decimal.RequireFromString("105.26"),
		DiscountAmount: decimal.RequireFromString("5.26"),
		FeeAmount:      decimal.Zero,
		FeePercentage:  decimal.Zero,
	}, now)
	require.NoError(t, err)

	row := registrationtest.Get(t, db, id)
	require.True(t, row.BaseTotal.Valid)
	assert.True(t, row.BaseTotal.Decimal.Equal(decimal.RequireFromString("105.26")))
	assert.True(t, row.DiscountAmount.Equal(decimal.RequireFromString("5.26")))
	assert.True(t, row.UpdatedAt.Equal(now))

	rows, err := repo.ListBreakdownCandidates(ctx, db, domain.Cursor{}, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateMissingRow(t *testing.T) {
	db := registrationtest.OpenDB(t)
	repo := repository.Provide()
	ctx := context.Background()

	err := repo.UpdateBreakdown(ctx, db, 999, domain.Breakdown{}, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.UpdatePhone(ctx, db, 999, "34988364084", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCreatedSince(t *testing.T) {
	db := registrationtest.OpenDB(t)
	repo := repository.Provide()
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	registrationtest.Insert(t, db, registrationtest.Seed{Total: "10.00", CreatedAt: cutoff.Add(-time.Hour)})
	after := registrationtest.Insert(t, db, registrationtest.Seed{Total: "10.00", CreatedAt: cutoff.Add(time.Hour)})

	rows, err := repo.ListCreatedSince(context.Background(), db, cutoff, domain.Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, after, rows[0].ID)
}

func TestFindByCPFMatchesDigits(t *testing.T) {
	db := registrationtest.OpenDB(t)
	repo := repository.Provide()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	older := registrationtest.Insert(t, db, registrationtest.Seed{Total: "10.00", CPF: "123.456.789-00", CreatedAt: base})
	newer := registrationtest.Insert(t, db, registrationtest.Seed{Total: "10.00", CPF: "12345678900", CreatedAt: base.Add(time.Hour)})
	registrationtest.Insert(t, db, registrationtest.Seed{Total: "10.00", CPF: "98765432100", CreatedAt: base})

	rows, err := repo.FindByCPF(ctx, db, "123.456.789-00")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer, rows[0].ID)
	assert.Equal(t, older, rows[1].ID)

	_, err = repo.FindByCPF(ctx, db, "---")
	assert.ErrorIs(t, err, domain.ErrInvalidCPF)
}

func TestFindByCPFIgnoresSlash(t *testing.T) {
	db := registrationtest.OpenDB(t)
	repo := repository.Provide()

	id := registrationtest.Insert(t, db, registrationtest.Seed{Total: "10.00", CPF: "12.345.678/0001-90"})

	rows, err := repo.FindByCPF(context.Background(), db, "12345678000190")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
}

func TestUpdatePhone(t *testing.T) {
	db := registrationtest.OpenDB(t)
	repo := repository.Provide()

	id := registrationtest.Insert(t, db, registrationtest.Seed{Total: "10.00", Phone: registrationtest.Ptr("11999999999")})
	require.NoError(t, repo.UpdatePhone(context.Background(), db, id, "34988364084", time.Now()))

	row := registrationtest.Get(t, db, id)
	assert.Equal(t, "34988364084", row.PhoneValue())
}
