package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uaizouk/backoffice/internal/clock"
	obsmetrics "github.com/uaizouk/backoffice/internal/observability/metrics"
	"github.com/uaizouk/backoffice/internal/ratelimit"
	"github.com/uaizouk/backoffice/internal/reconciliation/domain"
	"github.com/uaizouk/backoffice/internal/report"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobBreakdown    = "breakdown"
	JobPhones       = "phones"
	JobInstallments = "installments"
)

const lockKeyPrefix = "backoffice:job:"

var (
	ErrInvalidConfig = errors.New("invalid scheduler config")
	ErrUnknownJob    = errors.New("unknown_job")
	ErrJobLocked     = errors.New("job_locked")
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Service domain.Service
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  Config            `optional:"true"`
	Locker  *ratelimit.Locker `optional:"true"`
	Reports *report.Writer    `optional:"true"`
}

// Result describes one job run. Exactly one of Summary, Phones and
// Installments is set, depending on the job.
type Result struct {
	Job          string                    `json:"job"`
	RunID        string                    `json:"run_id"`
	StartedAt    time.Time                 `json:"started_at"`
	FinishedAt   time.Time                 `json:"finished_at"`
	Processed    int                       `json:"processed"`
	Errors       int                       `json:"errors"`
	Flagged      int                       `json:"flagged"`
	TimedOut     bool                      `json:"timed_out"`
	ReportPath   string                    `json:"report_path,omitempty"`
	Error        string                    `json:"error,omitempty"`
	Summary      *domain.Summary           `json:"summary,omitempty"`
	Phones       *domain.PhoneReport       `json:"phones,omitempty"`
	Installments *domain.InstallmentReport `json:"installments,omitempty"`
}

// runLocker is satisfied by *ratelimit.Locker.
type runLocker interface {
	Enabled() bool
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type job struct {
	name string
	run  func(ctx context.Context, run *jobRun) error
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	svc     domain.Service
	locker  runLocker
	reports *report.Writer
	jobs    []job

	mu   sync.RWMutex
	last map[string]Result
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Service == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		svc:     p.Service,
		locker:  p.Locker,
		reports: p.Reports,
		last:    make(map[string]Result),
	}
	s.jobs = []job{
		{name: JobBreakdown, run: s.breakdownJob},
		{name: JobPhones, run: s.phonesJob},
		{name: JobInstallments, run: s.installmentsJob},
	}
	return s, nil
}

// Jobs lists the known job names in run order.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		names = append(names, j.name)
	}
	return names
}

func (s *Scheduler) lookup(name string) (job, bool) {
	for _, j := range s.jobs {
		if strings.EqualFold(j.name, name) {
			return j, true
		}
	}
	return job{}, false
}

// RunJob runs one job under the distributed lock, when configured, and the
// job timeout. A timeout is soft: the partial result is returned without error.
func (s *Scheduler) RunJob(parent context.Context, name string) (Result, error) {
	j, ok := s.lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	jobMetrics := obsmetrics.Jobs()

	if s.locker.Enabled() {
		key := lockKeyPrefix + j.name
		token, acquired, err := s.locker.TryLock(parent, key, s.cfg.LockTTL)
		if err != nil {
			jobMetrics.IncJobError(j.name, err)
			return Result{Job: j.name}, fmt.Errorf("%s: acquire lock: %w", j.name, err)
		}
		if !acquired {
			jobMetrics.IncJobSkipped(j.name, obsmetrics.JobSkipReasonLocked)
			s.log.Info("scheduler.job.skipped", zap.String("job", j.name), zap.String("reason", obsmetrics.JobSkipReasonLocked))
			return Result{Job: j.name}, ErrJobLocked
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.locker.Release(releaseCtx, key, token); err != nil {
				s.log.Warn("scheduler.lock.release_failed", zap.String("job", j.name), zap.Error(err))
			}
		}()
	}

	return s.runJob(parent, j)
}

func (s *Scheduler) runJob(parent context.Context, j job) (Result, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run := s.newJobRun(ctx, j.name)
	s.logJobStart(ctx, run)
	jobMetrics := obsmetrics.Jobs()
	jobMetrics.IncJobRun(j.name)

	err := j.run(ctx, run)
	run.result.FinishedAt = s.clock.Now()
	jobMetrics.ObserveJobDuration(j.name, time.Since(run.began))

	// treat deadline as soft-timeout
	isTimeout := err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
	if isTimeout {
		run.result.TimedOut = true
		jobMetrics.IncJobTimeout(j.name)
	}
	if err != nil {
		run.result.Error = err.Error()
		jobMetrics.IncJobError(j.name, err)
	}
	s.logJobFinish(ctx, run)
	s.remember(*run.result)

	if err == nil || isTimeout {
		if isTimeout {
			s.logger(ctx).Warn("job timed out",
				zap.Duration("timeout", s.cfg.JobTimeout),
				zap.Error(err),
			)
		}
		return *run.result, nil
	}
	s.logJobError(ctx, "scheduler.job.failed", err)
	return *run.result, fmt.Errorf("%s: %w", j.name, err)
}

// RunOnce runs the named jobs in order, or every enabled job when none are
// named. A job held by another process is skipped.
func (s *Scheduler) RunOnce(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		for _, name := range s.Jobs() {
			if s.isJobEnabled(name) {
				names = append(names, name)
			}
		}
	}

	var err error
	for _, name := range names {
		if _, runErr := s.RunJob(ctx, name); runErr != nil && !errors.Is(runErr, ErrJobLocked) {
			err = errors.Join(err, runErr)
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()
	jobMetrics := obsmetrics.Jobs()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			jobMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LastResult returns the most recent result of a job run by this process.
func (s *Scheduler) LastResult(name string) (Result, bool) {
	j, ok := s.lookup(name)
	if !ok {
		return Result{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.last[j.name]
	return res, ok
}

func (s *Scheduler) remember(res Result) {
	s.mu.Lock()
	s.last[res.Job] = res
	s.mu.Unlock()
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// If EnabledJobs is empty, all jobs are enabled
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
