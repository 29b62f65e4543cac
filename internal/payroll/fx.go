package payroll

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/payroll/repository"
	"github.com/tastelanc/backoffice/internal/payroll/service"
)

var Module = fx.Module("payroll.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
