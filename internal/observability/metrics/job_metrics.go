package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	providerdomain "github.com/uaizouk/backoffice/internal/paymentprovider/domain"
	"github.com/uaizouk/backoffice/pkg/db"
)

const (
	JobReasonDeadlineExceeded = "deadline_exceeded"
	JobReasonProvider         = "provider"
	JobReasonProviderTimeout  = "provider_timeout"
	JobReasonUnknown          = "unknown"
)

const (
	RowOutcomeUpdated = "updated"
	RowOutcomeFailed  = "failed"
	RowOutcomeFlagged = "flagged"
	RowOutcomeSkipped = "skipped"
	RowOutcomeChecked = "checked"
)

const JobSkipReasonLocked = "locked"

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

// JobMetrics captures reconciliation job health.
type JobMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobTimeouts *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobSkipped  *prometheus.CounterVec
	rows        *prometheus.CounterVec
	runLoopLag  prometheus.Observer
}

var (
	jobMetricsOnce sync.Once
	jobMetrics     *JobMetrics
)

// Jobs returns the singleton job metrics registered on the default registerer.
func Jobs() *JobMetrics {
	return JobsWithConfig(Config{})
}

func JobsWithConfig(cfg Config) *JobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetrics = NewJobMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return jobMetrics
}

// UseJobMetricsForTest replaces the singleton, typically with one bound to a private registry.
func UseJobMetricsForTest(m *JobMetrics) {
	jobMetricsOnce = sync.Once{}
	jobMetricsOnce.Do(func() {})
	jobMetrics = m
}

// ResetJobMetricsForTest resets the job metrics singleton for tests.
func ResetJobMetricsForTest() {
	jobMetricsOnce = sync.Once{}
	jobMetrics = nil
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "backoffice"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{"service": serviceName, "env": environment}
}

func NewJobMetrics(registerer prometheus.Registerer, cfg Config) *JobMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	m := &JobMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_job_runs_total",
			Help:        "Reconciliation job runs by name.",
			ConstLabels: labels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "backoffice_job_duration_seconds",
			Help:        "Reconciliation job latency.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
			ConstLabels: labels,
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_job_timeouts_total",
			Help:        "Reconciliation jobs stopped by their timeout.",
			ConstLabels: labels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_job_errors_total",
			Help:        "Reconciliation job errors by low-cardinality reason.",
			ConstLabels: labels,
		}, []string{"job", "reason"}),
		jobSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_job_skipped_total",
			Help:        "Reconciliation job runs skipped before starting.",
			ConstLabels: labels,
		}, []string{"job", "reason"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_job_rows_total",
			Help:        "Registrations handled by reconciliation jobs, by outcome.",
			ConstLabels: labels,
		}, []string{"job", "outcome"}),
	}
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "backoffice_scheduler_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: labels,
	})
	m.runLoopLag = lag

	registerer.MustRegister(m.jobRuns, m.jobDuration, m.jobTimeouts, m.jobErrors, m.jobSkipped, m.rows, lag)
	return m
}

func (m *JobMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *JobMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *JobMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *JobMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
}

func (m *JobMetrics) IncJobSkipped(job, reason string) {
	if m == nil {
		return
	}
	m.jobSkipped.WithLabelValues(job, reason).Inc()
}

func (m *JobMetrics) AddRows(job, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.rows.WithLabelValues(job, outcome).Add(float64(count))
}

func (m *JobMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil {
		return
	}
	if lag < 0 {
		lag = 0
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// ClassifyJobReason maps job errors to low-cardinality reasons.
func ClassifyJobReason(err error) string {
	switch {
	case err == nil:
		return JobReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return JobReasonDeadlineExceeded
	case errors.Is(err, providerdomain.ErrProviderTimeout):
		return JobReasonProviderTimeout
	case errors.Is(err, providerdomain.ErrProvider):
		return JobReasonProvider
	}
	if reason := db.ClassifyError(err); reason != db.ErrorClassNone {
		return reason
	}
	return JobReasonUnknown
}
