package scheduler

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	obscontext "github.com/tastelanc/backoffice/internal/observability/context"
	obslogger "github.com/tastelanc/backoffice/internal/observability/logger"
	obsmetrics "github.com/tastelanc/backoffice/internal/observability/metrics"
)

// jobRun tracks one execution of a job: which rows it touched, per resource,
// and how many steps failed. It travels in the job's context.
type jobRun struct {
	job       string
	id        string
	startedAt time.Time
	counts    map[string]int
	failures  int
}

type jobRunKey struct{}

// beginRun attaches a new run to ctx and logs the start. The scheduler acts as
// the "system" actor for everything the job does.
func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		id:        s.genID.Generate().String(),
		startedAt: s.clock.Now(),
		counts:    map[string]int{},
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	s.logger(ctx).Info("scheduler.job.start", zap.String("job", job), zap.String("run_id", run.id))
	return ctx, run
}

func runFrom(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

// count records n processed rows of resource for the current run and feeds
// the batch counter.
func count(ctx context.Context, resource string, n int) {
	if n <= 0 {
		return
	}
	run := runFrom(ctx)
	if run == nil {
		return
	}
	run.counts[resource] += n
	obsmetrics.Scheduler().AddBatchProcessed(run.job, resource, n)
}

// endRun logs the outcome. A run that returned an error but never logged a
// failed step still counts as one failure.
func (s *Scheduler) endRun(ctx context.Context, run *jobRun, err error) {
	if err != nil && run.failures == 0 {
		run.failures = 1
	}

	resources := make([]string, 0, len(run.counts))
	for r := range run.counts {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.id),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("error_count", run.failures),
	}
	for _, r := range resources {
		fields = append(fields, zap.Int("processed_"+r, run.counts[r]))
	}

	log := s.logger(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warn("scheduler.job.timeout", fields...)
	case run.failures > 0:
		log.Warn("scheduler.job.finish", fields...)
	default:
		log.Info("scheduler.job.finish", fields...)
	}
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

// stepFailed logs a failed step inside a job and marks the run.
func (s *Scheduler) stepFailed(ctx context.Context, msg string, err error, fields ...zap.Field) {
	run := runFrom(ctx)
	job := ""
	if run != nil {
		run.failures++
		job = run.job
	}
	s.logger(ctx).Error(msg, append([]zap.Field{
		zap.String("job", job),
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	}, fields...)...)
}
