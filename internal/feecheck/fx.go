package feecheck

import (
	"go.uber.org/fx"

	"github.com/furima-share/fleapay/internal/feecheck/repository"
	"github.com/furima-share/fleapay/internal/feecheck/service"
)

var Module = fx.Module("feecheck.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
