package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePricingConfig(t *testing.T) {
	assert.NoError(t, validatePricingConfig(DefaultPricingConfig()))
	assert.NoError(t, validatePricingConfig(PricingConfig{DefaultFlatRate: 0.05}))

	assert.Error(t, validatePricingConfig(PricingConfig{DefaultFlatRate: 0}))
	assert.Error(t, validatePricingConfig(PricingConfig{DefaultFlatRate: -0.1}))
	assert.Error(t, validatePricingConfig(PricingConfig{DefaultFlatRate: 1}))
	assert.Error(t, validatePricingConfig(PricingConfig{DefaultFlatRate: 1.5}))
}

func TestStaticHolderReturnsStoredConfig(t *testing.T) {
	cfg := PricingConfig{CommunityGoalPhase: "phase2", DefaultFlatRate: 0.08}
	holder := NewStaticPricingConfigHolder(cfg)
	assert.Equal(t, cfg, holder.Get())
}
