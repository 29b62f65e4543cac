package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/clock"
	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
	obsmetrics "github.com/tastelanc/backoffice/internal/observability/metrics"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
	"github.com/tastelanc/backoffice/internal/ratelimit"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     Config
	LeadSvc    leaddomain.Service
	PayrollSvc payrolldomain.Service
	Locker     *ratelimit.Locker `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	leadSvc    leaddomain.Service
	payrollSvc payrolldomain.Service
	locker     JobLocker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.LeadSvc == nil || p.PayrollSvc == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		leadSvc:    p.LeadSvc,
		payrollSvc: p.PayrollSvc,
	}
	if p.Locker != nil {
		s.locker = p.Locker
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.beginRun(ctx, name)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := s.withLock(ctx, name, fn)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(run.startedAt))
	s.endRun(ctx, run, err)
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// the next tick retries
		schedMetrics.IncJobTimeout(name)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Timeout time.Duration
		Run     func(context.Context) error
	}{
		{JobLeadSweep, s.cfg.LeadSweepTimeout, s.LeadSweepJob},
		{JobPayrollClose, s.cfg.PayrollTimeout, s.PayrollCloseJob},
	}
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Timeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
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

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// an empty list enables every job
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}

// LeadSweepJob nudges owners of aging leads and flags stale ones.
func (s *Scheduler) LeadSweepJob(ctx context.Context) error {
	res, err := s.leadSvc.Sweep(ctx)
	if res != nil {
		count(ctx, "leads", res.Scanned)
		count(ctx, "nudges", res.Nudged)
		count(ctx, "stale", res.MarkedStale)
	}
	if err != nil {
		s.stepFailed(ctx, "lead sweep incomplete", err)
		return err
	}
	return nil
}

// PayrollCloseJob closes the most recent finished pay period and emails
// statements for it. Re-running is harmless: closing is idempotent and sent
// batches are left alone.
func (s *Scheduler) PayrollCloseJob(ctx context.Context) error {
	period := s.payrollSvc.ResolvePeriod(s.clock.Now()).Previous()
	res, err := s.payrollSvc.CloseBatch(ctx, period.Start)
	if err != nil {
		s.stepFailed(ctx, "payroll close failed", err, zap.Time("period_start", period.Start))
		return err
	}
	if res.Created {
		count(ctx, "payroll_lines", len(res.Batch.Lines))
	}
	if !s.cfg.SendStatements || res.Batch.StatementsSentAt != nil || len(res.Batch.Lines) == 0 {
		return nil
	}

	sent, err := s.payrollSvc.SendStatements(ctx, res.Batch.ID)
	if errors.Is(err, payrolldomain.ErrStatementsAlreadySent) {
		return nil
	}
	if sent != nil {
		count(ctx, "statements", sent.Sent)
	}
	if err != nil {
		s.stepFailed(ctx, "payroll statements incomplete", err, zap.String("batch_id", res.Batch.ID))
		return err
	}
	return nil
}
