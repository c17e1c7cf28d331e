package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 1, cfg.Incentive.DefaultLevel)
	assert.True(t, cfg.Incentive.LockSubjects)
	assert.Equal(t, time.Minute, cfg.Incentive.RuleCacheTTL())
	assert.Equal(t, 30, cfg.Security.PurchaseRateLimit.MaxRequests)
	assert.Equal(t, 1, cfg.Security.PurchaseVINRateLimit.MaxRequests)
	assert.Equal(t, 30, cfg.Security.PurchaseVINRateLimit.WindowSeconds)
	assert.Equal(t, 120, cfg.Security.PublicRateLimit.MaxRequests)
	assert.False(t, cfg.Queue.Enabled)
	assert.Equal(t, time.Hour, cfg.Queue.SweepInterval())
	assert.Equal(t, 1, cfg.Queue.Queues["default"])
}

func TestDecodeReadsYAMLOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	yaml := `
database:
  driver: postgres
  dsn: host=db user=syl dbname=syl
incentive:
  default_level: 3
  rule_cache_ttl_seconds: 0
`
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Incentive.DefaultLevel)
	assert.Zero(t, cfg.Incentive.RuleCacheTTL())
}

func TestDecodeRejectsNegativeDefaultLevel(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("incentive.default_level", -1)

	_, err := decode(v)
	assert.Error(t, err)
}
