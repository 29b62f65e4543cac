package tier

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/tier/service"
)

var Module = fx.Module("tier.service",
	fx.Provide(service.New),
)
