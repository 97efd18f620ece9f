package scheduler

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uaizouk/backoffice/internal/clock"
	"github.com/uaizouk/backoffice/internal/config"
	obsmetrics "github.com/uaizouk/backoffice/internal/observability/metrics"
	"github.com/uaizouk/backoffice/internal/reconciliation/domain"
	"github.com/uaizouk/backoffice/internal/report"
	"go.uber.org/zap"
)

type fakeService struct {
	breakdown    func(ctx context.Context) (domain.Summary, error)
	phones       func(ctx context.Context) (domain.PhoneReport, error)
	installments func(ctx context.Context) (domain.InstallmentReport, error)
}

func (f *fakeService) RunBreakdownRecalculation(ctx context.Context) (domain.Summary, error) {
	if f.breakdown == nil {
		return domain.Summary{}, nil
	}
	return f.breakdown(ctx)
}

func (f *fakeService) RunPhoneReconciliation(ctx context.Context) (domain.PhoneReport, error) {
	if f.phones == nil {
		return domain.PhoneReport{}, nil
	}
	return f.phones(ctx)
}

func (f *fakeService) RunInstallmentAudit(ctx context.Context) (domain.InstallmentReport, error) {
	if f.installments == nil {
		return domain.InstallmentReport{}, nil
	}
	return f.installments(ctx)
}

func (f *fakeService) ApplyPhoneCorrections(context.Context, []domain.PhoneIssue, []int64) (domain.Summary, error) {
	return domain.Summary{}, nil
}

type fakeLocker struct {
	held     bool
	released []string
}

func (l *fakeLocker) Enabled() bool { return true }

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.held {
		return "", false, nil
	}
	return "token-" + key, true, nil
}

func (l *fakeLocker) Release(_ context.Context, key, _ string) error {
	l.released = append(l.released, key)
	return nil
}

func newTestScheduler(t *testing.T, svc domain.Service, cfg Config) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	obsmetrics.UseJobMetricsForTest(obsmetrics.NewJobMetrics(registry, obsmetrics.Config{
		ServiceName: "backoffice",
		Environment: "test",
	}))
	t.Cleanup(obsmetrics.ResetJobMetricsForTest)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	s, err := New(Params{
		Log:     zap.NewNop(),
		Service: svc,
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		Config:  cfg,
	})
	require.NoError(t, err)
	return s, registry
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	svc := &fakeService{breakdown: func(ctx context.Context) (domain.Summary, error) {
		<-ctx.Done()
		return domain.Summary{Total: 1, SuccessCount: 1}, ctx.Err()
	}}
	s, registry := newTestScheduler(t, svc, Config{JobTimeout: 5 * time.Millisecond})

	res, err := s.RunJob(context.Background(), JobBreakdown)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 1, res.Processed)

	labels := map[string]string{"service": "backoffice", "env": "test", "job": JobBreakdown}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "backoffice_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "backoffice",
		"env":     "test",
		"job":     JobBreakdown,
		"reason":  obsmetrics.JobReasonDeadlineExceeded,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "backoffice_job_errors_total", errorLabels))
}

func TestRunJobRecordsRowsAndLastResult(t *testing.T) {
	svc := &fakeService{breakdown: func(context.Context) (domain.Summary, error) {
		return domain.Summary{SuccessCount: 2, ErrorCount: 1, Total: 3}, nil
	}}
	s, registry := newTestScheduler(t, svc, Config{})

	_, ok := s.LastResult(JobBreakdown)
	assert.False(t, ok)

	res, err := s.RunJob(context.Background(), "Breakdown")
	require.NoError(t, err)
	assert.Equal(t, JobBreakdown, res.Job)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.Summary)
	assert.Equal(t, domain.Summary{SuccessCount: 2, ErrorCount: 1, Total: 3}, *res.Summary)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Errors)

	last, ok := s.LastResult(JobBreakdown)
	require.True(t, ok)
	assert.Equal(t, res.RunID, last.RunID)

	updated := map[string]string{"service": "backoffice", "env": "test", "job": JobBreakdown, "outcome": obsmetrics.RowOutcomeUpdated}
	failed := map[string]string{"service": "backoffice", "env": "test", "job": JobBreakdown, "outcome": obsmetrics.RowOutcomeFailed}
	assert.Equal(t, float64(2), getCounterValue(t, registry, "backoffice_job_rows_total", updated))
	assert.Equal(t, float64(1), getCounterValue(t, registry, "backoffice_job_rows_total", failed))
}

func TestRunJobUnknown(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeService{}, Config{})
	_, err := s.RunJob(context.Background(), "payouts")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunOnceJoinsFailures(t *testing.T) {
	calls := 0
	svc := &fakeService{
		breakdown: func(context.Context) (domain.Summary, error) {
			calls++
			return domain.Summary{}, domain.ErrStoreQuery
		},
		phones: func(context.Context) (domain.PhoneReport, error) {
			calls++
			return domain.PhoneReport{}, nil
		},
		installments: func(context.Context) (domain.InstallmentReport, error) {
			calls++
			return domain.InstallmentReport{}, nil
		},
	}
	s, _ := newTestScheduler(t, svc, Config{})

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreQuery)
	assert.Equal(t, 3, calls)

	last, ok := s.LastResult(JobBreakdown)
	require.True(t, ok)
	assert.Contains(t, last.Error, "store_query_failed")
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	var ran []string
	svc := &fakeService{
		breakdown: func(context.Context) (domain.Summary, error) {
			ran = append(ran, JobBreakdown)
			return domain.Summary{}, nil
		},
		phones: func(context.Context) (domain.PhoneReport, error) {
			ran = append(ran, JobPhones)
			return domain.PhoneReport{}, nil
		},
	}
	s, _ := newTestScheduler(t, svc, Config{EnabledJobs: []string{"phones"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{JobPhones}, ran)
}

func TestRunJobSkipsWhenLocked(t *testing.T) {
	called := false
	svc := &fakeService{breakdown: func(context.Context) (domain.Summary, error) {
		called = true
		return domain.Summary{}, nil
	}}
	s, registry := newTestScheduler(t, svc, Config{})
	locker := &fakeLocker{held: true}
	s.locker = locker

	_, err := s.RunJob(context.Background(), JobBreakdown)
	assert.ErrorIs(t, err, ErrJobLocked)
	assert.False(t, called)

	skipped := map[string]string{"service": "backoffice", "env": "test", "job": JobBreakdown, "reason": obsmetrics.JobSkipReasonLocked}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "backoffice_job_skipped_total", skipped))
	assert.NoError(t, s.RunOnce(context.Background(), JobBreakdown))

	locker.held = false
	_, err = s.RunJob(context.Background(), JobBreakdown)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []string{lockKeyPrefix + JobBreakdown}, locker.released)
}

func TestPhonesJobWritesReport(t *testing.T) {
	svc := &fakeService{phones: func(context.Context) (domain.PhoneReport, error) {
		return domain.PhoneReport{
			Checked: 2,
			Flagged: []domain.PhoneIssue{{RegistrationID: 1, Name: "Ana", Reason: domain.PhoneReasonPlaceholder}},
		}, nil
	}}
	s, _ := newTestScheduler(t, svc, Config{})
	s.reports = report.NewWriter(config.Config{ReportDir: t.TempDir()}, s.clock, zap.NewNop())

	res, err := s.RunJob(context.Background(), JobPhones)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Flagged)
	require.NotEmpty(t, res.ReportPath)
	_, statErr := os.Stat(res.ReportPath)
	assert.NoError(t, statErr)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{JobTimeout: 2 * time.Hour}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 2*time.Hour, cfg.LockTTL)
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
