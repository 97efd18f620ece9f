package scheduler

import (
	"context"

	obsmetrics "github.com/uaizouk/backoffice/internal/observability/metrics"
	"go.uber.org/zap"
)

func (s *Scheduler) breakdownJob(ctx context.Context, run *jobRun) error {
	summary, err := s.svc.RunBreakdownRecalculation(ctx)
	res := run.result
	res.Summary = &summary
	res.Processed = summary.Total
	res.Errors = summary.ErrorCount

	jobMetrics := obsmetrics.Jobs()
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeUpdated, summary.SuccessCount)
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeFailed, summary.ErrorCount)
	return err
}

func (s *Scheduler) phonesJob(ctx context.Context, run *jobRun) error {
	report, err := s.svc.RunPhoneReconciliation(ctx)
	res := run.result
	res.Phones = &report
	res.Processed = report.Checked
	res.Errors = report.Errors
	res.Flagged = len(report.Flagged)

	jobMetrics := obsmetrics.Jobs()
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeChecked, report.Checked)
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeSkipped, report.Skipped)
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeFailed, report.Errors)
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeFlagged, len(report.Flagged))

	if len(report.Flagged) > 0 {
		path, reportErr := s.reports.WritePhoneIssues(run.job, run.runID, report.Flagged)
		s.recordReport(ctx, res, path, reportErr)
	}
	return err
}

func (s *Scheduler) installmentsJob(ctx context.Context, run *jobRun) error {
	report, err := s.svc.RunInstallmentAudit(ctx)
	res := run.result
	res.Installments = &report
	res.Processed = report.Checked
	res.Errors = report.Errors
	res.Flagged = len(report.Flagged)

	jobMetrics := obsmetrics.Jobs()
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeChecked, report.Checked)
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeFailed, report.Errors)
	jobMetrics.AddRows(run.job, obsmetrics.RowOutcomeFlagged, len(report.Flagged))

	if len(report.Flagged) > 0 {
		path, reportErr := s.reports.WriteInstallmentIssues(run.job, run.runID, report.Flagged)
		s.recordReport(ctx, res, path, reportErr)
	}
	return err
}

// recordReport never fails the job; the flagged rows are also in the result.
func (s *Scheduler) recordReport(ctx context.Context, res *Result, path string, err error) {
	if err != nil {
		s.logger(ctx).Warn("scheduler.report.failed", zap.Error(err))
		return
	}
	res.ReportPath = path
}
