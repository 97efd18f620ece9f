package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	providerdomain "github.com/uaizouk/backoffice/internal/paymentprovider/domain"
	"gorm.io/gorm"
)

func TestClassifyJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: JobReasonDeadlineExceeded},
		{name: "provider timeout", err: fmt.Errorf("lookup: %w", providerdomain.ErrProviderTimeout), want: JobReasonProviderTimeout},
		{name: "provider status", err: &providerdomain.ProviderError{StatusCode: 502}, want: JobReasonProvider},
		{name: "db lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: "db_lock_timeout"},
		{name: "unique violation", err: gorm.ErrDuplicatedKey, want: "unique_violation"},
		{name: "unknown", err: errors.New("boom"), want: JobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddRows(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewJobMetrics(registry, Config{ServiceName: "backoffice", Environment: "test"})

	m.AddRows("breakdown", RowOutcomeUpdated, 3)
	m.AddRows("breakdown", RowOutcomeUpdated, 0)
	m.AddRows("breakdown", RowOutcomeFailed, 1)

	if got := testutil.ToFloat64(m.rows.WithLabelValues("breakdown", RowOutcomeUpdated)); got != 3 {
		t.Fatalf("expected updated count 3, got %v", got)
	}
	if got := testutil.ToFloat64(m.rows.WithLabelValues("breakdown", RowOutcomeFailed)); got != 1 {
		t.Fatalf("expected failed count 1, got %v", got)
	}
}

func TestJobMetricsConstLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewJobMetrics(registry, Config{Environment: "test"})
	m.IncJobRun("phones")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var runs *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "backoffice_job_runs_total" {
			runs = family
		}
	}
	if runs == nil || len(runs.GetMetric()) != 1 {
		t.Fatalf("expected one job run series, got %v", runs)
	}
	labels := map[string]string{}
	for _, pair := range runs.GetMetric()[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	if labels["service"] != "backoffice" || labels["env"] != "test" || labels["job"] != "phones" {
		t.Fatalf("unexpected labels %v", labels)
	}
}
