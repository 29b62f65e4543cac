package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsHighCardinalityLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("plan", "premium"),
		attribute.String("restaurant_id", "456"),
		attribute.String("event_type", "click"),
		attribute.String("rep_id", "7"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("plan"), attrs[0].Key)
	assert.Equal(t, attribute.Key("event_type"), attrs[1].Key)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCommissionEntry(ctx, "Premium", "bonus", false, 50)
	m.RecordUnmatchedPlan(ctx, "Gold")
	m.RecordAnalyticsEvent(ctx, "page_view")

	var nilMetrics *Metrics
	nilMetrics.RecordLeadReclaimed(ctx)
}
