package feerate

import (
	"go.uber.org/fx"

	"github.com/furima-share/fleapay/internal/feerate/repository"
	"github.com/furima-share/fleapay/internal/feerate/service"
)

var Module = fx.Module("feerate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
