package scheduler

import (
	"context"
	"time"

	obscontext "github.com/uaizouk/backoffice/internal/observability/context"
	obslogger "github.com/uaizouk/backoffice/internal/observability/logger"
	obsmetrics "github.com/uaizouk/backoffice/internal/observability/metrics"
	"go.uber.org/zap"
)

type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	began     time.Time
	result    *Result
}

func (s *Scheduler) newJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	if ctx == nil {
		ctx = context.Background()
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
		began:     time.Now(),
	}
	run.result = &Result{
		Job:       job,
		RunID:     run.runID,
		StartedAt: run.startedAt,
	}
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	ctx = obscontext.WithJob(ctx, job, run.runID)
	return ctx, run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	s.logger(ctx).Info("scheduler.job.start",
		zap.Duration("timeout", s.cfg.JobTimeout),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	res := run.result
	fields := []zap.Field{
		zap.Int64("duration_ms", res.FinishedAt.Sub(run.startedAt).Milliseconds()),
		zap.Int("processed_count", res.Processed),
		zap.Int("error_count", res.Errors),
		zap.Int("flagged_count", res.Flagged),
		zap.Bool("timed_out", res.TimedOut),
	}
	if res.ReportPath != "" {
		fields = append(fields, zap.String("report", res.ReportPath))
	}
	log := s.logger(ctx)
	if res.Errors > 0 || res.Error != "" {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) logJobError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	baseFields := []zap.Field{
		zap.String("error_type", obsmetrics.ClassifyJobReason(err)),
		zap.Error(err),
	}
	s.logger(ctx).Error(msg, append(baseFields, fields...)...)
}
