package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tastelanc/backoffice/internal/clock"
	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
	obsmetrics "github.com/tastelanc/backoffice/internal/observability/metrics"
	payperioddomain "github.com/tastelanc/backoffice/internal/payperiod/domain"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
	"github.com/tastelanc/backoffice/internal/ratelimit"
)

// Tuesday; the last finished pay period started Sunday 2026-10-11.
var now = time.Date(2026, 10, 20, 3, 0, 0, 0, time.UTC)

type fakeLeads struct {
	leaddomain.Service
	calls int
	res   *leaddomain.SweepResult
	err   error
}

func (f *fakeLeads) Sweep(ctx context.Context) (*leaddomain.SweepResult, error) {
	f.calls++
	return f.res, f.err
}

type fakePayroll struct {
	closed    []time.Time
	result    *payrolldomain.CloseResult
	sendCalls int
	sendErr   error
}

func (f *fakePayroll) ResolvePeriod(t time.Time) payperioddomain.PayPeriod {
	return payperioddomain.Resolve(t)
}

func (f *fakePayroll) CloseBatch(ctx context.Context, periodStart time.Time) (*payrolldomain.CloseResult, error) {
	f.closed = append(f.closed, periodStart)
	return f.result, nil
}

func (f *fakePayroll) GetBatch(ctx context.Context, id string) (*payrolldomain.BatchResponse, error) {
	return nil, nil
}

func (f *fakePayroll) ListBatches(ctx context.Context) ([]payrolldomain.BatchResponse, error) {
	return nil, nil
}

func (f *fakePayroll) Statement(ctx context.Context, batchID, repID string) (io.Reader, error) {
	return nil, nil
}

func (f *fakePayroll) SendStatements(ctx context.Context, batchID string) (*payrolldomain.SendResult, error) {
	f.sendCalls++
	return &payrolldomain.SendResult{BatchID: batchID, Sent: 1}, f.sendErr
}

type fakeLocker struct {
	held     bool
	released []string
}

func (f *fakeLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (ratelimit.ReleaseFunc, bool, error) {
	if f.held {
		return nil, false, nil
	}
	return func(context.Context) error {
		f.released = append(f.released, name)
		return nil
	}, true, nil
}

func newTestScheduler(t *testing.T, leads *fakeLeads, payroll *fakePayroll) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(now),
		Config:     DefaultConfig(),
		LeadSvc:    leads,
		PayrollSvc: payroll,
	})
	require.NoError(t, err)
	return s
}

func withRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "tastelanc", Environment: "test"})
	return registry
}

func TestNewRequiresServices(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := withRegistry(t)
	s := newTestScheduler(t, &fakeLeads{}, &fakePayroll{})

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{"service": "tastelanc", "env": "test", "job": "timeout_job"}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "tastelanc_scheduler_job_timeouts_total", labels))

	labels["reason"] = obsmetrics.SchedulerJobReasonDeadlineExceeded
	assert.Equal(t, 1.0, getCounterValue(t, registry, "tastelanc_scheduler_job_errors_total", labels))
}

func TestRunOnceRunsEnabledJobs(t *testing.T) {
	registry := withRegistry(t)
	leads := &fakeLeads{res: &leaddomain.SweepResult{Scanned: 4, Nudged: 2, MarkedStale: 1}}
	payroll := &fakePayroll{result: &payrolldomain.CloseResult{
		Created: true,
		Batch:   payrolldomain.BatchResponse{ID: "9", Lines: []payrolldomain.LineResponse{{RepID: "7"}}},
	}}
	s := newTestScheduler(t, leads, payroll)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, leads.calls)
	require.Len(t, payroll.closed, 1)
	assert.True(t, payroll.closed[0].Equal(time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, payroll.sendCalls)

	labels := map[string]string{"service": "tastelanc", "env": "test", "job": JobLeadSweep, "resource": "nudges"}
	assert.Equal(t, 2.0, getCounterValue(t, registry, "tastelanc_scheduler_batch_processed_total", labels))

	s.cfg.EnabledJobs = []string{"LEAD_SWEEP"}
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 2, leads.calls)
	assert.Len(t, payroll.closed, 1)
}

func TestPayrollCloseSkipsSentOrEmptyBatches(t *testing.T) {
	withRegistry(t)
	sentAt := now
	payroll := &fakePayroll{result: &payrolldomain.CloseResult{
		Batch: payrolldomain.BatchResponse{ID: "9", StatementsSentAt: &sentAt, Lines: []payrolldomain.LineResponse{{RepID: "7"}}},
	}}
	s := newTestScheduler(t, &fakeLeads{}, payroll)
	require.NoError(t, s.PayrollCloseJob(context.Background()))
	assert.Zero(t, payroll.sendCalls)

	payroll.result = &payrolldomain.CloseResult{Created: true, Batch: payrolldomain.BatchResponse{ID: "10"}}
	require.NoError(t, s.PayrollCloseJob(context.Background()))
	assert.Zero(t, payroll.sendCalls)
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	withRegistry(t)
	leads := &fakeLeads{err: errors.New("db down")}
	payroll := &fakePayroll{
		result:  &payrolldomain.CloseResult{Batch: payrolldomain.BatchResponse{ID: "9", Lines: []payrolldomain.LineResponse{{RepID: "7"}}}},
		sendErr: errors.New("smtp down"),
	}
	s := newTestScheduler(t, leads, payroll)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead_sweep: db down")
	assert.Contains(t, err.Error(), "payroll_close: smtp down")
}

func TestHeldLockSkipsJob(t *testing.T) {
	registry := withRegistry(t)
	leads := &fakeLeads{res: &leaddomain.SweepResult{}}
	s := newTestScheduler(t, leads, &fakePayroll{})
	locker := &fakeLocker{held: true}
	s.locker = locker

	require.NoError(t, s.runJob(context.Background(), JobLeadSweep, time.Second, s.LeadSweepJob))
	assert.Zero(t, leads.calls)
	labels := map[string]string{
		"service": "tastelanc", "env": "test", "job": JobLeadSweep,
		"reason": obsmetrics.SchedulerSkipReasonLockHeld,
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "tastelanc_scheduler_job_skipped_total", labels))

	locker.held = false
	require.NoError(t, s.runJob(context.Background(), JobLeadSweep, time.Second, s.LeadSweepJob))
	assert.Equal(t, 1, leads.calls)
	assert.Equal(t, []string{lockPrefix + JobLeadSweep}, locker.released)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
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

func TestRunLogSummarisesProcessedRows(t *testing.T) {
	withRegistry(t)
	core, logs := observer.New(zapcore.InfoLevel)
	leads := &fakeLeads{res: &leaddomain.SweepResult{Scanned: 3, Nudged: 1}}
	s := newTestScheduler(t, leads, &fakePayroll{})
	s.log = zap.New(core)

	require.NoError(t, s.runJob(context.Background(), JobLeadSweep, time.Second, s.LeadSweepJob))

	finished := logs.FilterMessage("scheduler.job.finish").AllUntimed()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.Equal(t, int64(3), fields["processed_leads"])
	assert.Equal(t, int64(1), fields["processed_nudges"])
	assert.NotContains(t, fields, "processed_stale")
	assert.Equal(t, "scheduler", fields["actor_id"])
	assert.Equal(t, int64(0), fields["error_count"])
}
