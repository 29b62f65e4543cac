package restaurant

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/restaurant/repository"
	"github.com/tastelanc/backoffice/internal/restaurant/service"
)

var Module = fx.Module("restaurant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
