package commission

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/commission/repository"
	"github.com/tastelanc/backoffice/internal/commission/service"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
