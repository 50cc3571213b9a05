package tier

import (
	"go.uber.org/fx"

	"github.com/furima-share/fleapay/internal/tier/repository"
	"github.com/furima-share/fleapay/internal/tier/service"
)

var Module = fx.Module("tier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
