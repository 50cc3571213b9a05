package migration

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	cgdomain "github.com/furima-share/fleapay/internal/communitygoal/domain"
	"github.com/furima-share/fleapay/internal/config"
	feeratedomain "github.com/furima-share/fleapay/internal/feerate/domain"
	ledgerdomain "github.com/furima-share/fleapay/internal/ledger/domain"
	"github.com/furima-share/fleapay/internal/ratelimit"
	"github.com/furima-share/fleapay/internal/seed"
	tierdomain "github.com/furima-share/fleapay/internal/tier/domain"
)

const (
	startupLockKey   = "fleapay:startup:migrate"
	startupLockTTL   = 2 * time.Minute
	startupLockRetry = 500 * time.Millisecond
	startupLockWait  = 5 * time.Minute
)

type runParams struct {
	fx.In

	DB     *gorm.DB
	Cfg    config.Config
	Log    *zap.Logger
	Locker *ratelimit.StartupLocker `optional:"true"`
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p runParams) error {
		ctx := context.Background()
		release, err := acquireStartupLock(ctx, p.Locker, p.Log.Named("migrations"))
		if err != nil {
			return err
		}
		defer release()

		if p.Cfg.DBType == "postgres" {
			sqlDB, err := p.DB.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := p.DB.AutoMigrate(
				&tierdomain.SellerMonthlyTierState{},
				&cgdomain.CommunityGoal{},
				&feeratedomain.FeeRateMaster{},
				&ledgerdomain.PaymentRecord{},
				&ledgerdomain.PaymentEventRecord{},
			); err != nil {
				return err
			}
		}
		return seed.EnsureFeeRates(p.DB)
	}),
)

// acquireStartupLock keeps concurrent instances from racing the schema
// migration and the seed. Both are idempotent, so a late acquirer simply
// re-runs them against an up-to-date schema; the lock only stops them from
// interleaving. Without redis the caller runs unguarded, which is the
// single-instance deployment.
func acquireStartupLock(ctx context.Context, locker *ratelimit.StartupLocker, log *zap.Logger) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}

	deadline := time.Now().Add(startupLockWait)
	for {
		token, ok, err := locker.TryLock(ctx, startupLockKey, startupLockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if err := locker.Release(ctx, startupLockKey, token); err != nil {
					log.Warn("startup lock release failed", zap.Error(err))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.New("timed out waiting for the startup migration lock")
		}
		log.Info("waiting for another instance to finish migrating")
		time.Sleep(startupLockRetry)
	}
}
