package metrics

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"github.com/tastelanc/backoffice/internal/authorization"
	payrolldomain "github.com/tastelanc/backoffice/internal/payroll/domain"
)

// error_type values on scheduler log lines
const (
	SchedulerErrorTypeDeadlineExceeded = "deadline_exceeded"
	SchedulerErrorTypeAuthorization    = "authorization"
	SchedulerErrorTypeBusinessRule     = "business_rule"
	SchedulerErrorTypeDB               = "db"
	SchedulerErrorTypeNetwork          = "network"
	SchedulerErrorTypeUnknown          = "unknown"
)

// reason label values on tastelanc_scheduler_job_errors_total
const (
	SchedulerJobReasonDeadlineExceeded     = "deadline_exceeded"
	SchedulerJobReasonDBLockTimeout        = "db_lock_timeout"
	SchedulerJobReasonSerializationFailure = "serialization_failure"
	SchedulerJobReasonUniqueViolation      = "unique_violation"
	SchedulerJobReasonForbidden            = "forbidden"
	SchedulerJobReasonPeriodOpen           = "period_open"
	SchedulerJobReasonNetwork              = "network"
	SchedulerJobReasonUnknown              = "unknown"

	SchedulerSkipReasonLockHeld = "lock_held"
	SchedulerSkipReasonDisabled = "disabled"
)

var runtimeBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// SchedulerMetrics tracks the lead sweep and payroll close jobs.
type SchedulerMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	jobSkipped     *prometheus.CounterVec
	batchProcessed *prometheus.CounterVec
	runLoopLag     prometheus.Histogram
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the process-wide scheduler collectors.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig registers the collectors on first use with the
// service and env labels from cfg. Later calls ignore cfg.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "unknown"
	}
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = defaultServiceName
	}

	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"service": service, "env": env}, registerer))
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Name: "tastelanc_scheduler_" + name, Help: help}, labels)
	}

	return &SchedulerMetrics{
		jobRuns:        counter("job_runs_total", "Scheduler job runs by name.", "job"),
		jobTimeouts:    counter("job_timeouts_total", "Scheduler jobs cut short by their timeout.", "job"),
		jobErrors:      counter("job_errors_total", "Scheduler job failures by reason.", "job", "reason"),
		jobSkipped:     counter("job_skipped_total", "Scheduler runs skipped, usually because another replica holds the lease.", "job", "reason"),
		batchProcessed: counter("batch_processed_total", "Rows handled by scheduler jobs: leads scanned, nudges, payroll lines, statements.", "job", "resource"),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tastelanc_scheduler_job_duration_seconds",
			Help:    "Scheduler job latency.",
			Buckets: runtimeBuckets,
		}, []string{"job"}),
		runLoopLag: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tastelanc_scheduler_runloop_lag_seconds",
			Help:    "How late a scheduler pass started relative to its tick.",
			Buckets: runtimeBuckets,
		}),
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m != nil {
		m.jobRuns.WithLabelValues(job).Inc()
	}
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m != nil {
		m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
	}
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m != nil {
		m.jobTimeouts.WithLabelValues(job).Inc()
	}
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m != nil && err != nil {
		m.jobErrors.WithLabelValues(job, ClassifySchedulerJobReason(err)).Inc()
	}
}

func (m *SchedulerMetrics) IncJobSkipped(job, reason string) {
	if m != nil {
		m.jobSkipped.WithLabelValues(job, reason).Inc()
	}
}

func (m *SchedulerMetrics) AddBatchProcessed(job, resource string, n int) {
	if m != nil && n > 0 {
		m.batchProcessed.WithLabelValues(job, resource).Add(float64(n))
	}
}

func (m *SchedulerMetrics) ObserveRunLoopLag(d time.Duration) {
	if m != nil {
		m.runLoopLag.Observe(max(d, 0).Seconds())
	}
}

// jobFailure is what the scheduler knows about an error: the metric reason,
// the log error_type and whether the next pass can be expected to succeed.
type jobFailure struct {
	reason    string
	errType   string
	retryable bool
}

func classifyJobFailure(err error) jobFailure {
	var pgErr *pgconn.PgError
	isPG := errors.As(err, &pgErr)
	var netErr net.Error

	switch {
	case err == nil:
		return jobFailure{SchedulerJobReasonUnknown, SchedulerErrorTypeUnknown, false}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return jobFailure{SchedulerJobReasonDeadlineExceeded, SchedulerErrorTypeDeadlineExceeded, true}
	case errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return jobFailure{SchedulerJobReasonForbidden, SchedulerErrorTypeAuthorization, false}
	case errors.Is(err, payrolldomain.ErrPeriodOpen):
		return jobFailure{SchedulerJobReasonPeriodOpen, SchedulerErrorTypeBusinessRule, true}
	case isPG && pgErr.Code == "55P03":
		return jobFailure{SchedulerJobReasonDBLockTimeout, SchedulerErrorTypeDB, true}
	case isPG && pgErr.Code == "40001":
		return jobFailure{SchedulerJobReasonSerializationFailure, SchedulerErrorTypeDB, true}
	case errors.Is(err, gorm.ErrDuplicatedKey), isPG && pgErr.Code == "23505":
		return jobFailure{SchedulerJobReasonUniqueViolation, SchedulerErrorTypeDB, true}
	case isPG, errors.Is(err, gorm.ErrInvalidDB), errors.Is(err, gorm.ErrInvalidTransaction):
		return jobFailure{SchedulerJobReasonUnknown, SchedulerErrorTypeDB, true}
	case errors.As(err, &netErr):
		// smtp and push delivery
		return jobFailure{SchedulerJobReasonNetwork, SchedulerErrorTypeNetwork, true}
	}
	return jobFailure{SchedulerJobReasonUnknown, SchedulerErrorTypeBusinessRule, false}
}

// ClassifySchedulerJobReason maps a job error to a low-cardinality label.
func ClassifySchedulerJobReason(err error) string { return classifyJobFailure(err).reason }

// ClassifySchedulerErrorType is the error_type field for scheduler logs.
func ClassifySchedulerErrorType(err error) string { return classifyJobFailure(err).errType }

func IsSchedulerErrorRetryable(err error) bool { return classifyJobFailure(err).retryable }
