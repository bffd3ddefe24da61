package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressplaylabs/launchcheck/internal/monitoring"
)

func newFallbackLimiter(cfg Config) *RateLimiter {
	return NewRateLimiter(&RedisClient{enabled: false}, cfg, monitoring.NewMetrics())
}

func TestAllowIPFallbackMode(t *testing.T) {
	limiter := newFallbackLimiter(Config{IPLimitPerMin: 3, BurstMultiplier: 2})

	ctx := context.Background()
	ip := "203.0.113.10"

	// Token bucket starts with burst capacity: limit * multiplier, floor 5.
	for i := 0; i < 6; i++ {
		result, err := limiter.AllowIP(ctx, ip)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3, result.Limit)
	}

	result, err := limiter.AllowIP(ctx, ip)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "request past burst capacity should be blocked")
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestAllowIPIndependentKeys(t *testing.T) {
	limiter := newFallbackLimiter(Config{IPLimitPerMin: 2, BurstMultiplier: 2})

	ctx := context.Background()
	ips := []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"}

	for _, ip := range ips {
		// Burst floor is 5 for small limits.
		for i := 0; i < 5; i++ {
			result, err := limiter.AllowIP(ctx, ip)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "ip %s request %d should be allowed", ip, i+1)
		}

		result, err := limiter.AllowIP(ctx, ip)
		require.NoError(t, err)
		assert.False(t, result.Allowed, "ip %s should be blocked after burst", ip)
	}
}

func TestEndpointKeyIsolation(t *testing.T) {
	limiter := newFallbackLimiter(Config{IPLimitPerMin: 60, BurstMultiplier: 1})

	ctx := context.Background()
	ip := "203.0.113.99"

	// Exhaust a tight endpoint budget without touching the IP budget.
	key := fmt.Sprintf("ratelimit:endpoint:%s:%s", "scan", ip)
	for i := 0; i < 5; i++ {
		_, err := limiter.allow(ctx, key, 2, time.Minute)
		require.NoError(t, err)
	}
	blocked, err := limiter.allow(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	result, err := limiter.AllowIP(ctx, ip)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "global IP budget should be unaffected")
}

func TestGetStatsFallback(t *testing.T) {
	limiter := newFallbackLimiter(DefaultConfig())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = limiter.AllowIP(ctx, fmt.Sprintf("10.0.0.%d", i))
	}

	stats := limiter.GetStats()
	assert.False(t, stats["redis_enabled"].(bool))
	assert.Equal(t, 3, stats["fallback_limiters"].(int))
	assert.Equal(t, 60, stats["ip_limit_per_min"].(int))
	assert.NotContains(t, stats, "redis_pool")
}

func TestAllowIPConcurrency(t *testing.T) {
	limiter := newFallbackLimiter(Config{IPLimitPerMin: 1000, BurstMultiplier: 2})

	ctx := context.Background()
	done := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				_, err := limiter.AllowIP(ctx, "203.0.113.50")
				assert.NoError(t, err)
			}
			done <- true
		}()
	}

	for i := 0; i < 50; i++ {
		<-done
	}
}

func TestAllowIPCancelledContext(t *testing.T) {
	limiter := newFallbackLimiter(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fallback mode does not consult the context.
	result, err := limiter.AllowIP(ctx, "203.0.113.77")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, result.Allowed)
}
