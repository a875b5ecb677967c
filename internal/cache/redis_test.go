package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/cache"
	"github.com/oggyb/ember/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	return cache.NewRedisCache(cfg), mr
}

func TestIncrWithExpire_FixedWindow(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupCache(t)

	n, err := rc.IncrWithExpire(ctx, "rl:test", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.FastForward(30 * time.Second)
	n, err = rc.IncrWithExpire(ctx, "rl:test", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// the second increment must not extend the window
	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("rl:test"))
}

func TestLikeCount_CacheMissHitInvalidate(t *testing.T) {
	ctx := context.Background()
	rc, _ := setupCache(t)

	_, ok, err := rc.GetLikeCount(ctx, "user_a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.SetLikeCount(ctx, "user_a", 7))
	n, ok, err := rc.GetLikeCount(ctx, "user_a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	require.NoError(t, rc.InvalidateLikeCount(ctx, "user_a"))
	_, ok, _ = rc.GetLikeCount(ctx, "user_a")
	assert.False(t, ok)
}

func TestPhoneCode(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupCache(t)

	require.NoError(t, rc.SetPhoneCode(ctx, "user_a", "+15550100", "123456"))
	assert.ErrorIs(t, rc.CheckPhoneCode(ctx, "user_a", "+15550100", "000000"), cache.ErrCodeMismatch)
	assert.ErrorIs(t, rc.CheckPhoneCode(ctx, "user_a", "+15550199", "123456"), cache.ErrCodeMismatch)
	require.NoError(t, rc.CheckPhoneCode(ctx, "user_a", "+15550100", "123456"))

	// consumed
	assert.ErrorIs(t, rc.CheckPhoneCode(ctx, "user_a", "+15550100", "123456"), cache.ErrCodeMismatch)

	require.NoError(t, rc.SetPhoneCode(ctx, "user_b", "+15550100", "654321"))
	mr.FastForward(11 * time.Minute)
	assert.ErrorIs(t, rc.CheckPhoneCode(ctx, "user_b", "+15550100", "654321"), cache.ErrCodeMismatch)
}

func TestPhoneCode_TooManyAttempts(t *testing.T) {
	ctx := context.Background()
	rc, _ := setupCache(t)

	require.NoError(t, rc.SetPhoneCode(ctx, "user_a", "+15550100", "123456"))
	for i := 0; i < 5; i++ {
		_ = rc.CheckPhoneCode(ctx, "user_a", "+15550100", "999999")
	}
	assert.ErrorIs(t, rc.CheckPhoneCode(ctx, "user_a", "+15550100", "123456"), cache.ErrCodeMismatch)
}
