package auth

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/auth/repository"
	"github.com/tastelanc/backoffice/internal/auth/service"
)

// Module provides user storage and the login, token and push token service.
var Module = fx.Module("auth",
	fx.Provide(repository.New, service.New),
)
