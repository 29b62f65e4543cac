package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

const defaultServiceName = "tastelanc-backoffice"

// Metrics exposes application-level instruments.
type Metrics struct {
	commissionEntries metric.Int64Counter
	commissionAmount  metric.Int64Counter
	unmatchedPlans    metric.Int64Counter
	analyticsEvents   metric.Int64Counter
	leadsReclaimed    metric.Int64Counter
	leadNudges        metric.Int64Counter
	tierChanges       metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = defaultServiceName
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.commissionEntries, "tastelanc_commission_entries_total", "Commission entries recorded."},
		{&m.commissionAmount, "tastelanc_commission_amount_total", "Commission paid out, in whole currency units."},
		{&m.unmatchedPlans, "tastelanc_commission_unmatched_plan_total", "Sales whose plan or length matched no pricing option."},
		{&m.analyticsEvents, "tastelanc_analytics_events_total", "Analytics events ingested."},
		{&m.leadsReclaimed, "tastelanc_leads_reclaimed_total", "Stale leads claimed by another rep."},
		{&m.leadNudges, "tastelanc_lead_nudges_total", "Follow-up reminders sent to lead owners."},
		{&m.tierChanges, "tastelanc_tier_changes_total", "Restaurant tier changes."},
		{&m.rateLimitDenied, "tastelanc_rate_limit_denied_total", "Requests rejected by a rate limiter."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}
	return m, nil
}

// RecordCommissionEntry counts a recorded sale and its payout.
func (m *Metrics) RecordCommissionEntry(ctx context.Context, plan, tier string, renewal bool, amount int64) {
	if m == nil {
		return
	}
	kind := "new"
	if renewal {
		kind = "renewal"
	}
	attrs := FilterAttributes(
		attribute.String("plan", strings.ToLower(strings.TrimSpace(plan))),
		attribute.String("commission_tier", tier),
		attribute.String("sale_kind", kind),
	)
	m.commissionEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
	if amount > 0 {
		m.commissionAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
	}
}

// RecordUnmatchedPlan counts a sale that could not be priced.
func (m *Metrics) RecordUnmatchedPlan(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("plan", strings.ToLower(strings.TrimSpace(plan))))
	m.unmatchedPlans.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAnalyticsEvent counts ingested analytics events by kind.
func (m *Metrics) RecordAnalyticsEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.analyticsEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLeadReclaimed counts a stale lead moving to a new owner.
func (m *Metrics) RecordLeadReclaimed(ctx context.Context) {
	if m == nil {
		return
	}
	m.leadsReclaimed.Add(ctx, 1)
}

// RecordLeadNudge counts reminders by delivery channel.
func (m *Metrics) RecordLeadNudge(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("channel", strings.TrimSpace(channel)))
	m.leadNudges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTierChange counts a tier transition.
func (m *Metrics) RecordTierChange(ctx context.Context, from, to, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_tier", from),
		attribute.String("to_tier", to),
		attribute.String("source", source),
	)
	m.tierChanges.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"plan":            {},
	"commission_tier": {},
	"sale_kind":       {},
	"event_type":      {},
	"channel":         {},
	"from_tier":       {},
	"to_tier":         {},
	"source":          {},
	"endpoint":        {},
	"status_code":     {},
	"reason":          {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
