// Package report writes flagged reconciliation rows to XLSX files for manual follow-up.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gosimple/slug"
	"github.com/uaizouk/backoffice/internal/clock"
	"github.com/uaizouk/backoffice/internal/config"
	"github.com/uaizouk/backoffice/internal/reconciliation/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	phoneSheet       = "Telefones"
	installmentSheet = "Parcelamentos"
	stampLayout      = "20060102-150405"
)

var Module = fx.Module("report",
	fx.Provide(NewWriter),
)

type Writer struct {
	dir   string
	clock clock.Clock
	log   *zap.Logger
}

func NewWriter(cfg config.Config, clk clock.Clock, log *zap.Logger) *Writer {
	return &Writer{
		dir:   cfg.ReportDir,
		clock: clk,
		log:   log.Named("report"),
	}
}

// Enabled reports whether a report directory is configured.
func (w *Writer) Enabled() bool {
	return w != nil && w.dir != ""
}

// WritePhoneIssues returns the written path, or "" when reports are disabled
// or there is nothing to report.
func (w *Writer) WritePhoneIssues(job, runID string, issues []domain.PhoneIssue) (string, error) {
	if !w.Enabled() || len(issues) == 0 {
		return "", nil
	}
	header := []interface{}{"ID", "Nome", "CPF", "Email", "Telefone local", "Telefone Asaas", "Telefone normalizado", "Motivo"}
	rows := make([][]interface{}, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []interface{}{
			issue.RegistrationID,
			issue.Name,
			issue.CPF,
			issue.Email,
			issue.LocalPhone,
			issue.ExternalPhone,
			issue.NormalizedExternalPhone,
			issue.Reason,
		})
	}
	return w.write(job, runID, phoneSheet, header, rows)
}

func (w *Writer) WriteInstallmentIssues(job, runID string, issues []domain.InstallmentIssue) (string, error) {
	if !w.Enabled() || len(issues) == 0 {
		return "", nil
	}
	header := []interface{}{"Pagamento", "Cliente", "Nome", "CPF", "Inscrição", "Parcelas locais", "Parcelas Asaas", "Descrição", "Motivo"}
	rows := make([][]interface{}, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []interface{}{
			issue.PaymentID,
			issue.CustomerID,
			issue.CustomerName,
			issue.CPF,
			optionalInt64(issue.RegistrationID),
			optionalInt(issue.LocalInstallments),
			issue.ProviderInstallments,
			issue.Description,
			issue.Reason,
		})
	}
	return w.write(job, runID, installmentSheet, header, rows)
}

func (w *Writer) write(job, runID, sheet string, header []interface{}, rows [][]interface{}) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return "", err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return "", err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return "", err
		}
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return "", err
	}

	name := slug.Make(fmt.Sprintf("%s %s %s", job, w.clock.Now().Format(stampLayout), runID)) + ".xlsx"
	path := filepath.Join(w.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	w.log.Info("report.written", zap.String("job", job), zap.String("path", path), zap.Int("rows", len(rows)))
	return path, nil
}

func optionalInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
