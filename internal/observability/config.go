package observability

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/tastelanc/backoffice/internal/config"
)

// Config holds observability settings. Values come from the OTEL_* and LOG_*
// environment variables, falling back to the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DEPLOYMENT_ENV", cfg.Environment)
	v.SetDefault("SERVICE_VERSION", cfg.AppVersion)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_SAMPLING_RATIO", 0.1)

	protocol := firstNonEmpty(v.GetString("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"), v.GetString("OTEL_EXPORTER_OTLP_PROTOCOL"))

	return Config{
		ServiceName:          firstNonEmpty(cfg.AppName, "tastelanc-backoffice"),
		Environment:          firstNonEmpty(v.GetString("DEPLOYMENT_ENV"), cfg.Environment),
		Version:              firstNonEmpty(v.GetString("SERVICE_VERSION"), cfg.AppVersion),
		LogLevel:             strings.ToLower(firstNonEmpty(v.GetString("LOG_LEVEL"), "info")),
		LogFormat:            strings.ToLower(firstNonEmpty(v.GetString("LOG_FORMAT"), "json")),
		OtelEnabled:          v.GetBool("OTEL_ENABLED"),
		OtelExporterEndpoint: firstNonEmpty(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"), cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(protocol),
		OtelSamplingRatio:    clampRatio(v.GetFloat64("OTEL_SAMPLING_RATIO")),
	}
}

// Debug is true for debug log level and for non-deployed environments.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
