package registration

import (
	"github.com/uaizouk/backoffice/internal/registration/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("registration.repository",
	fx.Provide(repository.Provide),
)
