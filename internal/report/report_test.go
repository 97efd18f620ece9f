package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uaizouk/backoffice/internal/clock"
	"github.com/uaizouk/backoffice/internal/config"
	"github.com/uaizouk/backoffice/internal/reconciliation/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newTestWriter(dir string) *Writer {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
	return NewWriter(config.Config{ReportDir: dir}, clk, zap.NewNop())
}

func TestWritePhoneIssues(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(dir)

	path, err := w.WritePhoneIssues("phones", "1234", []domain.PhoneIssue{
		{
			RegistrationID:          7,
			Name:                    "Ana Souza",
			CPF:                     "11111111111",
			Email:                   "ana@example.com",
			LocalPhone:              "11999999999",
			ExternalPhone:           "+55 (34) 98836-4084",
			NormalizedExternalPhone: "34988364084",
			Reason:                  domain.PhoneReasonPlaceholder,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "phones-20250601-093000-1234.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(phoneSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Nome", rows[0][1])
	assert.Equal(t, []string{"7", "Ana Souza", "11111111111", "ana@example.com", "11999999999", "+55 (34) 98836-4084", "34988364084", "placeholder"}, rows[1])
}

func TestWriteInstallmentIssues(t *testing.T) {
	w := newTestWriter(t.TempDir())
	regID, local := int64(3), 1

	path, err := w.WriteInstallmentIssues("installments", "99", []domain.InstallmentIssue{
		{PaymentID: "pay_1", CustomerID: "cus_b", CPF: "222", RegistrationID: &regID, LocalInstallments: &local, ProviderInstallments: 3, Reason: domain.InstallmentReasonMismatch},
		{PaymentID: "pay_2", CustomerID: "cus_c", ProviderInstallments: 4, Reason: domain.InstallmentReasonRegistrationMissing},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(installmentSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "1", rows[1][5])
	assert.Equal(t, "3", rows[1][6])
	assert.Equal(t, "registration_missing", rows[2][8])
}

func TestWriterDisabled(t *testing.T) {
	w := newTestWriter("")
	path, err := w.WritePhoneIssues("phones", "1", []domain.PhoneIssue{{RegistrationID: 1}})
	require.NoError(t, err)
	assert.Empty(t, path)

	w = newTestWriter(t.TempDir())
	path, err = w.WritePhoneIssues("phones", "1", nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}
