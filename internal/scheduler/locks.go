package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	obsmetrics "github.com/tastelanc/backoffice/internal/observability/metrics"
	"github.com/tastelanc/backoffice/internal/ratelimit"
)

const lockPrefix = "scheduler:"

// JobLocker keeps one replica per job. *ratelimit.Locker satisfies it.
type JobLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (ratelimit.ReleaseFunc, bool, error)
}

// withLock runs fn while holding the job's lease. Without a lock backend the
// job runs unguarded. A held lease skips the run.
func (s *Scheduler) withLock(ctx context.Context, job string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	release, ok, err := s.locker.Acquire(ctx, lockPrefix+job, s.cfg.LockTTL)
	switch {
	case errors.Is(err, ratelimit.ErrLockNotConfigured):
		return fn(ctx)
	case err != nil:
		return err
	case !ok:
		obsmetrics.Scheduler().IncJobSkipped(job, obsmetrics.SchedulerSkipReasonLockHeld)
		s.logger(ctx).Info("scheduler.job.skipped",
			zap.String("job", job),
			zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld),
		)
		return nil
	}

	defer func() {
		// the job context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			s.logger(ctx).Warn("scheduler lock release failed", zap.String("job", job), zap.Error(err))
		}
	}()
	return fn(ctx)
}
