package communitygoal

import (
	"go.uber.org/fx"

	"github.com/furima-share/fleapay/internal/communitygoal/repository"
	"github.com/furima-share/fleapay/internal/communitygoal/service"
)

var Module = fx.Module("communitygoal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
