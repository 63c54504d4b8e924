package redis_test

import (
	"context"
	"testing"

	"pharmacy-guard-backend/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		_, err := redis.Options(redis.Config{})
		assert.ErrorIs(t, err, redis.ErrNotConfigured)
	})

	t.Run("default port and url password", func(t *testing.T) {
		opts, err := redis.Options(redis.Config{URL: "redis://:s3cret@cache.internal"})
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6379", opts.Addr)
		assert.Equal(t, "s3cret", opts.Password)
		assert.Nil(t, opts.TLSConfig)
	})

	t.Run("tls with explicit password", func(t *testing.T) {
		opts, err := redis.Options(redis.Config{URL: "rediss://cache.internal:6380", Password: "override"})
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, "override", opts.Password)
		assert.NotNil(t, opts.TLSConfig)
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, err := redis.Options(redis.Config{URL: "http://cache.internal"})
		assert.Error(t, err)
	})
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redis.Connect(context.Background(), redis.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, redis.HealthCheck(context.Background(), client))

	mr.Close()
	assert.Error(t, redis.HealthCheck(context.Background(), client))
	assert.Error(t, redis.HealthCheck(context.Background(), nil))
}
