package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tastelanc/backoffice/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")

	cfg := LoadConfig(config.Config{AppName: " ", Environment: "production", OTLPEndpoint: "collector:4317"})

	assert.Equal(t, "tastelanc-backoffice", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.Debug())

	cfg.Environment = "local"
	assert.True(t, cfg.Debug())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "4")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DEPLOYMENT_ENV", "staging")

	cfg := LoadConfig(config.Config{Environment: "production"})

	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.Equal(t, "staging", cfg.Environment)
	assert.True(t, cfg.Debug())
}

func TestSplitConfig(t *testing.T) {
	out := splitConfig(Config{
		ServiceName:       "backoffice",
		Environment:       "test",
		LogLevel:          "warn",
		OtelEnabled:       true,
		OtelSamplingRatio: 0.5,
	})

	assert.Equal(t, "warn", out.Logger.Level)
	assert.True(t, out.Logger.IncludeStackOnError, "test environments are debug")
	assert.Equal(t, 0.5, out.Tracing.SamplingRatio)
	assert.True(t, out.Metrics.Enabled)
	assert.Equal(t, "backoffice", out.Metrics.ServiceName)
}
