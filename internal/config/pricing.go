package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds the operational pricing knobs that can change without
// a redeploy: which community-goal phase feeds the top-tier bonus, and the
// flat rate used when no fee-rate row applies.
type PricingConfig struct {
	// CommunityGoalPhase names the campaign window consulted for top-tier
	// sellers. Empty means no bonus phase is active.
	CommunityGoalPhase string `mapstructure:"communityGoalPhase"`

	// DefaultFlatRate backs the legacy (tier-disabled) path when the
	// fee_rate_masters table has no applicable row.
	DefaultFlatRate float64 `mapstructure:"defaultFlatRate"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		CommunityGoalPhase: "phase1",
		DefaultFlatRate:    0.10,
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fleapay/config")
	v.AddConfigPath("/etc/fleapay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLEAPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.communityGoalPhase", defaults.CommunityGoalPhase)
	v.SetDefault("pricing.defaultFlatRate", defaults.DefaultFlatRate)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

// NewStaticPricingConfigHolder wraps a fixed config. Tests use it to avoid
// touching the filesystem.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validatePricingConfig(cfg PricingConfig) error {
	if cfg.DefaultFlatRate <= 0 || cfg.DefaultFlatRate >= 1 {
		return errors.New("pricing.defaultFlatRate must be between 0 and 1 exclusive")
	}
	return nil
}
