package events

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/config"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

// NewPublisher picks kafka when KAFKA_BROKERS is set.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured; events go to the log")
		return NewLogPublisher(log)
	}
	pub := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	return pub
}
