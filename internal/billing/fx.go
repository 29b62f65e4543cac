package billing

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/billing/repository"
	"github.com/tastelanc/backoffice/internal/billing/service"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewGateway),
	fx.Provide(service.New),
)
