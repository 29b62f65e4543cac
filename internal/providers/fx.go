package providers

import (
	"go.uber.org/fx"

	"github.com/tastelanc/backoffice/internal/providers/email"
	"github.com/tastelanc/backoffice/internal/providers/pdf"
	"github.com/tastelanc/backoffice/internal/providers/push"
)

var Module = fx.Module("providers",
	email.Module,
	push.Module,
	pdf.Module,
)
