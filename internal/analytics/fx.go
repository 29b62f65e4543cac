package analytics

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/analytics/repository"
	"github.com/tastelanc/backoffice/internal/analytics/service"
)

var Module = fx.Module("analytics.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
