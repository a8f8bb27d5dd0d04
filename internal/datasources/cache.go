package datasources

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores encoded records under string keys with a TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Stats() CacheStats
	Close() error
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Backend string  `json:"backend"`
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) record(hit bool) {
	if hit {
		c.hits.Add(1)
		return
	}
	c.misses.Add(1)
}

func (c *counters) fill(s *CacheStats) {
	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
	counters
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the stored value if present and unexpired
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if ok && !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		ok = false
	}
	m.record(ok)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.data...), true, nil
}

// Set stores value. A zero ttl never expires.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// CleanExpired removes expired entries and returns how many were dropped
func (m *MemoryCache) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cleaned := 0
	for key, e := range m.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, key)
			cleaned++
		}
	}
	return cleaned
}

// StartCleanup runs CleanExpired every interval until ctx is done
func (m *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanExpired()
			}
		}
	}()
}

// Stats reports entry count and hit rate
func (m *MemoryCache) Stats() CacheStats {
	m.mu.RLock()
	s := CacheStats{Backend: "memory", Entries: len(m.entries)}
	m.mu.RUnlock()
	m.fill(&s)
	return s
}

// Close is a no-op for the memory backend
func (m *MemoryCache) Close() error {
	return nil
}

// RedisCache stores records in Redis under a key prefix
type RedisCache struct {
	client *redis.Client
	prefix string
	counters
}

// RedisOptions configures the Redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisCache connects to Redis and verifies the connection with PING
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisCacheWithClient(rdb, opts.Prefix), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "heliobio:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get returns the stored value; a missing key is a miss, not an error
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		r.record(false)
		return nil, false, nil
	}
	if err != nil {
		r.record(false)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	r.record(true)
	return val, true, nil
}

// Set stores value with ttl
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Stats reports hit rate; entry count is not tracked for Redis
func (r *RedisCache) Stats() CacheStats {
	s := CacheStats{Backend: "redis"}
	r.fill(&s)
	return s
}

// Close releases the client connection pool
func (r *RedisCache) Close() error {
	return r.client.Close()
}
