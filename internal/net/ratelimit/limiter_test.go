package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstThenThrottle(t *testing.T) {
	l := NewLimiter(2, 2)

	assert.True(t, l.Allow("api.nasa.gov"))
	assert.True(t, l.Allow("api.nasa.gov"))
	assert.False(t, l.Allow("api.nasa.gov"))
}

func TestLimiter_HostsAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	assert.True(t, l.Allow("api.nasa.gov"))
	assert.True(t, l.Allow("graph.facebook.com"))
	assert.False(t, l.Allow("api.nasa.gov"))
	assert.False(t, l.Allow("graph.facebook.com"))
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.1, 1)
	require.NoError(t, l.Wait(context.Background(), "slow.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "slow.example")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "slow.example")
}

func TestLimiter_WaitURL(t *testing.T) {
	l := NewLimiter(5, 1)
	require.NoError(t, l.WaitURL(context.Background(), "https://api.nasa.gov/DONKI/FLR?startDate=2025-01-01"))

	stats := l.Stats()
	require.Contains(t, stats, "api.nasa.gov")
	assert.Equal(t, 1, stats["api.nasa.gov"].Burst)
	assert.True(t, stats["api.nasa.gov"].Throttled)

	assert.Error(t, l.WaitURL(context.Background(), "://bad"))
}

func TestLimiter_ZeroRPSIsUnlimited(t *testing.T) {
	l := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("local"))
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	donki := r.Register("donki", 1, 1)

	assert.Same(t, donki, r.For("donki"))
	assert.True(t, r.For("donki").Allow("api.nasa.gov"))
	assert.False(t, r.For("donki").Allow("api.nasa.gov"))

	unknown := r.For("graph")
	assert.True(t, unknown.Allow("graph.facebook.com"))
	assert.Contains(t, r.Stats(), "graph")
}
