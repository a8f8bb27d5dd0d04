package datasources

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "lkg:solar", []byte(`{"a":1}`), time.Minute))

	val, ok, err := c.Get(ctx, "lkg:solar")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(val))

	_, ok, err = c.Get(ctx, "lkg:social")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 50.0, stats.HitRate)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("y"), 0))

	now = now.Add(2 * time.Minute)

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	val, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(val))
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(db, "test:")

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("test:lkg:solar").SetVal(`{"stored_at":"2025-01-01T00:00:00Z"}`)

		val, ok, err := c.Get(ctx, "lkg:solar")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, string(val), "stored_at")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("test:lkg:social").RedisNil()

		val, ok, err := c.Get(ctx, "lkg:social")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet("test:lkg:solar").SetErr(redis.TxFailedErr)

		_, ok, err := c.Get(ctx, "lkg:solar")
		assert.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set", func(t *testing.T) {
		payload := []byte(`{"record":{}}`)
		mock.ExpectSet("test:lkg:solar", payload, 30*time.Minute).SetVal("OK")

		require.NoError(t, c.Set(ctx, "lkg:solar", payload, 30*time.Minute))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set error", func(t *testing.T) {
		payload := []byte("x")
		mock.ExpectSet("test:lkg:social", payload, time.Minute).SetErr(redis.TxFailedErr)

		assert.Error(t, c.Set(ctx, "lkg:social", payload, time.Minute))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	stats := c.Stats()
	assert.Equal(t, "redis", stats.Backend)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}
