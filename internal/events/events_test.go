package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func TestNewEventIDsAreOrdered(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	first := New(TypeLeadStale, "lead-1", at, nil)
	second := New(TypeLeadStale, "lead-1", at, nil)

	assert.Less(t, first.ID, second.ID)
	parsed, err := ulid.Parse(first.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), parsed.Time())
}

func TestKafkaMessageCarriesHeadersAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	pub := NewKafkaPublisher([]string{"localhost:9092"}, "tastelanc.", zap.NewNop())
	defer pub.Close()

	evt := New(TypeCommissionRecorded, "rep-9", time.Now(), map[string]any{"amount": 50})
	msg, err := pub.message(ctx, evt)
	require.NoError(t, err)

	assert.Equal(t, "tastelanc.commission.recorded", msg.Topic)
	assert.Equal(t, []byte("rep-9"), msg.Key)

	carrier := &headerCarrier{headers: msg.Headers}
	assert.Equal(t, evt.ID, carrier.Get("event_id"))
	assert.Equal(t, TypeCommissionRecorded, carrier.Get("event_type"))
	assert.NotEmpty(t, carrier.Get("traceparent"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
}

func TestLogPublisherNeverFails(t *testing.T) {
	pub := NewLogPublisher(zap.NewNop())
	assert.NoError(t, pub.Publish(context.Background(), New(TypeTierChanged, "r-1", time.Now(), nil)))
}
