package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stockyourlot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	require.NoError(t, InitRedis(&config.RedisConfig{Enabled: false}))
	assert.False(t, Enabled())
	assert.Nil(t, Client())

	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var dest map[string]int
	hit, err := GetJSON(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, Del(ctx, "k"))
	assert.NoError(t, Ping(ctx))
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	require.NoError(t, InitRedis(&config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 6399, Prefix: " lot "}))
	t.Cleanup(func() { _ = Close() })

	assert.True(t, Enabled())
	assert.Equal(t, "lot:incentive:rule:42", BuildKey(IncentiveRuleKey(42)))
	assert.Equal(t, "lot", BuildKey("  "))

	require.NoError(t, Close())
	assert.False(t, Enabled())
	assert.Equal(t, "syl:x", BuildKey("x"))
}
