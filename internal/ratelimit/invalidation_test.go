package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidateIP(t *testing.T) {
	limiter := newFallbackLimiter(Config{IPLimitPerMin: 2, BurstMultiplier: 1})

	ctx := context.Background()
	ip := "192.0.2.1"

	// Exhaust the burst floor of 5.
	for i := 0; i < 5; i++ {
		_, err := limiter.AllowIP(ctx, ip)
		require.NoError(t, err)
	}

	result, err := limiter.AllowIP(ctx, ip)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	require.NoError(t, limiter.InvalidateIP(ctx, ip))

	result, err = limiter.AllowIP(ctx, ip)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "limits should be fresh after invalidation")
}

func TestInvalidateIPCoversEndpointKeys(t *testing.T) {
	limiter := newFallbackLimiter(DefaultConfig())

	ctx := context.Background()
	ip := "192.0.2.2"

	_, err := limiter.AllowIP(ctx, ip)
	require.NoError(t, err)
	_, err = limiter.allow(ctx, "ratelimit:endpoint:scan:"+ip, 5, time.Minute)
	require.NoError(t, err)

	count, err := limiter.GetKeyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, limiter.InvalidateIP(ctx, ip))

	count, err = limiter.GetKeyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInvalidateIPDoesNotAffectOtherIPs(t *testing.T) {
	limiter := newFallbackLimiter(Config{IPLimitPerMin: 2, BurstMultiplier: 1})

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = limiter.AllowIP(ctx, "192.0.2.10")
		_, _ = limiter.AllowIP(ctx, "192.0.2.11")
	}

	require.NoError(t, limiter.InvalidateIP(ctx, "192.0.2.10"))

	result, err := limiter.AllowIP(ctx, "192.0.2.10")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.AllowIP(ctx, "192.0.2.11")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "untouched IP should stay exhausted")
}

func TestInvalidateAll(t *testing.T) {
	limiter := newFallbackLimiter(DefaultConfig())

	ctx := context.Background()
	ips := []string{"192.0.2.20", "192.0.2.21", "192.0.2.22"}
	for _, ip := range ips {
		_, err := limiter.AllowIP(ctx, ip)
		require.NoError(t, err)
	}

	count, err := limiter.GetKeyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(ips), count)

	require.NoError(t, limiter.InvalidateAll(ctx))

	count, err = limiter.GetKeyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetKeyCountEmpty(t *testing.T) {
	limiter := newFallbackLimiter(DefaultConfig())

	count, err := limiter.GetKeyCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
