package push

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/config"
)

var Module = fx.Module("providers.push",
	fx.Provide(NewSender),
)

// NewSender initializes firebase at startup. Missing credentials disable push;
// other failures are logged and retried on first send.
func NewSender(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Sender {
	if _, err := credentialsOption(cfg.Firebase); errors.Is(err, ErrNotConfigured) {
		log.Info("firebase credentials not set; push notifications are dropped")
		return NoOpSender{}
	}
	init := NewInitializer(cfg.Firebase)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			result, err := init.Init(ctx)
			if err != nil {
				log.Warn("firebase init failed", zap.String("result", result.String()), zap.Error(err))
				return nil
			}
			log.Info("firebase messaging ready", zap.String("result", result.String()))
			return nil
		},
	})
	return NewFirebaseSender(init, log)
}
