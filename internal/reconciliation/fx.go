package reconciliation

import (
	"github.com/uaizouk/backoffice/internal/reconciliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(service.New),
)
