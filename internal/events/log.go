package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/observability/logger"
)

// LogPublisher records events in the service log. It is used when no broker
// is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events")}
}

func (p *LogPublisher) Publish(ctx context.Context, evt Event) error {
	logger.WithContext(ctx, p.log).Info("event",
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type),
		zap.String("key", evt.Key),
	)
	return nil
}
