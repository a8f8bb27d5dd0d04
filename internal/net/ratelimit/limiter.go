package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound requests with one token bucket per host
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	rps     float64
	burst   int
}

// NewLimiter creates a limiter granting rps requests per second per host with the given burst
func NewLimiter(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rps,
		burst:   burst,
	}
}

func (l *Limiter) bucket(host string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[host]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[host]; ok {
		return b
	}
	limit := rate.Limit(l.rps)
	if l.rps <= 0 {
		limit = rate.Inf
	}
	b = rate.NewLimiter(limit, l.burst)
	l.buckets[host] = b
	return b
}

// Allow reports whether a request to host may proceed now
func (l *Limiter) Allow(host string) bool {
	return l.bucket(host).Allow()
}

// Wait blocks until a request to host may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if err := l.bucket(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", host, err)
	}
	return nil
}

// WaitURL waits on the bucket for the host of rawURL
func (l *Limiter) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	return l.Wait(ctx, u.Host)
}

// Stats returns the bucket state for every host seen so far
func (l *Limiter) Stats() map[string]HostStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now()
	stats := make(map[string]HostStats, len(l.buckets))
	for host, b := range l.buckets {
		tokens := b.TokensAt(now)
		stats[host] = HostStats{
			Host:            host,
			RPS:             float64(b.Limit()),
			Burst:           b.Burst(),
			TokensAvailable: tokens,
			Throttled:       tokens < 1,
		}
	}
	return stats
}

// HostStats describes one host bucket
type HostStats struct {
	Host            string  `json:"host"`
	RPS             float64 `json:"rps"`
	Burst           int     `json:"burst"`
	TokensAvailable float64 `json:"tokens_available"`
	Throttled       bool    `json:"throttled"`
}

// Registry holds one limiter per metric source
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Limiter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*Limiter)}
}

// Register installs a limiter for source, replacing any previous one
func (r *Registry) Register(source string, rps float64, burst int) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := NewLimiter(rps, burst)
	r.sources[source] = l
	return l
}

// For returns the limiter for source. Unknown sources get an unthrottled limiter.
func (r *Registry) For(source string) *Limiter {
	r.mu.RLock()
	l, ok := r.sources[source]
	r.mu.RUnlock()
	if ok {
		return l
	}
	return r.Register(source, 0, 1)
}

// Stats returns per-source host stats
func (r *Registry) Stats() map[string]map[string]HostStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]HostStats, len(r.sources))
	for name, l := range r.sources {
		out[name] = l.Stats()
	}
	return out
}
