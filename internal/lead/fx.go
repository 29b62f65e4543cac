package lead

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/lead/repository"
	"github.com/tastelanc/backoffice/internal/lead/service"
)

var Module = fx.Module("lead.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewNotifier),
	fx.Provide(service.New),
)
