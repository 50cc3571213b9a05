package ledger

import (
	"go.uber.org/fx"

	"github.com/furima-share/fleapay/internal/ledger/repository"
	"github.com/furima-share/fleapay/internal/ledger/service"
	"github.com/furima-share/fleapay/internal/ledger/webhook"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(webhook.NewService),
)
