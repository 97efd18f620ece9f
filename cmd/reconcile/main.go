// Command reconcile runs reconciliation jobs once and prints their results as JSON.
//
//	reconcile -job breakdown
//	reconcile -job phones,installments
//	reconcile -apply-phones 12,57
//
// The exit status is non-zero only when a job cannot run at all, for example
// when the database is unreachable or the candidate query fails. Row level
// failures are reported in the output and logs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uaizouk/backoffice/internal/clock"
	"github.com/uaizouk/backoffice/internal/config"
	"github.com/uaizouk/backoffice/internal/migration"
	"github.com/uaizouk/backoffice/internal/observability"
	obscontext "github.com/uaizouk/backoffice/internal/observability/context"
	"github.com/uaizouk/backoffice/internal/paymentprovider"
	"github.com/uaizouk/backoffice/internal/ratelimit"
	"github.com/uaizouk/backoffice/internal/reconciliation"
	"github.com/uaizouk/backoffice/internal/reconciliation/domain"
	"github.com/uaizouk/backoffice/internal/registration"
	"github.com/uaizouk/backoffice/internal/report"
	"github.com/uaizouk/backoffice/internal/scheduler"
	"github.com/uaizouk/backoffice/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type output struct {
	CorrelationID    string             `json:"correlation_id"`
	Results          []scheduler.Result `json:"results"`
	Skipped          []string           `json:"skipped,omitempty"`
	PhoneCorrections *domain.Summary    `json:"phone_corrections,omitempty"`
}

func main() {
	jobsFlag := flag.String("job", "", "comma separated jobs to run: breakdown, phones, installments (default breakdown, or phones with -apply-phones)")
	applyFlag := flag.String("apply-phones", "", "comma separated registration ids to overwrite with the provider phone; runs the phones job first")
	flag.Parse()

	os.Exit(run(splitNames(*jobsFlag), *applyFlag))
}

func run(jobs []string, applyFlag string) int {
	applyIDs, err := parseIDs(applyFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -apply-phones: %v\n", err)
		return 2
	}
	jobs = selectJobs(jobs, len(applyIDs) > 0)

	var (
		sched *scheduler.Scheduler
		svc   domain.Service
		log   *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,
		registration.Module,
		paymentprovider.Module,
		reconciliation.Module,
		report.Module,
		scheduler.Module,
		fx.Populate(&sched, &svc, &log),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		return 1
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown failed: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	correlationID := ulid.Make().String()
	ctx = obscontext.WithCorrelationID(ctx, correlationID)
	ctx = obscontext.WithActor(ctx, "cli", "reconcile")

	out := output{CorrelationID: correlationID, Results: []scheduler.Result{}}
	status := 0
	var phones *domain.PhoneReport
	for _, name := range jobs {
		res, err := sched.RunJob(ctx, name)
		switch {
		case errors.Is(err, scheduler.ErrJobLocked):
			out.Skipped = append(out.Skipped, name)
			continue
		case err != nil:
			log.Error("reconcile job failed", zap.String("job", name), zap.Error(err))
			status = 1
		}
		if res.RunID != "" {
			out.Results = append(out.Results, res)
		}
		if res.Phones != nil {
			phones = res.Phones
		}
	}

	if len(applyIDs) > 0 {
		if phones == nil {
			fmt.Fprintln(os.Stderr, "phones job did not produce a report, no phone corrected")
			status = 1
		} else {
			summary, err := svc.ApplyPhoneCorrections(ctx, phones.Flagged, applyIDs)
			out.PhoneCorrections = &summary
			if err != nil {
				log.Error("phone corrections failed", zap.Error(err))
				status = 1
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return status
}

func splitNames(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.ToLower(strings.TrimSpace(part)); name != "" && !contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// selectJobs falls back to breakdown, or to phones alone when corrections
// are requested. Corrections always need the phones job.
func selectJobs(jobs []string, applyPhones bool) []string {
	if !applyPhones {
		if len(jobs) == 0 {
			return []string{scheduler.JobBreakdown}
		}
		return jobs
	}
	if !contains(jobs, scheduler.JobPhones) {
		jobs = append(jobs, scheduler.JobPhones)
	}
	return jobs
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad registration id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
