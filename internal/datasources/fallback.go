package datasources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// Domain names used for cache keys, health tags and metrics labels
const (
	DomainSolar  = "solar"
	DomainSocial = "social"
)

// DefaultMaxAge bounds how old a cached live record may be before synthetic data replaces it
const DefaultMaxAge = 30 * time.Minute

// ResolveObserver is told the provenance of every record a chain returns
type ResolveObserver func(domain string, tag metrics.DataSource)

// ChainOption configures a fallback chain
type ChainOption func(*chainCore)

// WithCache sets the last-known-good cache
func WithCache(c Cache) ChainOption {
	return func(cc *chainCore) {
		cc.cache = c
	}
}

// WithMaxAge sets how long a cached live record stays usable
func WithMaxAge(d time.Duration) ChainOption {
	return func(cc *chainCore) {
		if d > 0 {
			cc.maxAge = d
		}
	}
}

// WithHealth sets the tracker that records fetch outcomes
func WithHealth(h *Health) ChainOption {
	return func(cc *chainCore) {
		cc.health = h
	}
}

// WithObserver registers a provenance observer
func WithObserver(fn ResolveObserver) ChainOption {
	return func(cc *chainCore) {
		cc.observers = append(cc.observers, fn)
	}
}

// WithChainClock overrides the clock used to age cached records
func WithChainClock(now func() time.Time) ChainOption {
	return func(cc *chainCore) {
		cc.now = now
	}
}

type cachedRecord[T any] struct {
	StoredAt time.Time `json:"stored_at"`
	Record   T         `json:"record"`
}

type chainCore struct {
	domain    string
	cache     Cache
	maxAge    time.Duration
	health    *Health
	observers []ResolveObserver
	now       func() time.Time
}

func newChainCore(domain string, opts []ChainOption) chainCore {
	cc := chainCore{
		domain: domain,
		cache:  NewMemoryCache(),
		maxAge: DefaultMaxAge,
		health: NewHealth(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cc)
	}
	return cc
}

func (cc *chainCore) key() string {
	return "lkg:" + cc.domain
}

func (cc *chainCore) resolved(tag metrics.DataSource) {
	cc.health.RecordTag(cc.domain, tag)
	for _, fn := range cc.observers {
		fn(cc.domain, tag)
	}
}

// resolve runs the live fetch when configured and falls back to the cache, then synthetic data.
// It only fails when ctx is done or the synthetic generator fails.
func resolve[T any](
	ctx context.Context,
	cc *chainCore,
	liveName string,
	live func(context.Context) (T, error),
	synthetic func(context.Context) (T, error),
	tag func(*T, metrics.DataSource),
) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if live == nil {
		rec, err := synthetic(ctx)
		if err != nil {
			return zero, fmt.Errorf("%s synthetic: %w", cc.domain, err)
		}
		tag(&rec, metrics.DataSourceSimulated)
		cc.resolved(metrics.DataSourceSimulated)
		return rec, nil
	}

	start := time.Now()
	rec, liveErr := live(ctx)
	cc.health.RecordFetch(liveName, time.Since(start), liveErr)

	if liveErr == nil {
		tag(&rec, metrics.DataSourceLive)
		cc.store(ctx, rec)
		cc.resolved(metrics.DataSourceLive)
		return rec, nil
	}

	log.Warn().
		Err(liveErr).
		Str("component", "datasources").
		Str("domain", cc.domain).
		Str("source", liveName).
		Msg("Live fetch failed, falling back")

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if cached, ok := loadCached[T](ctx, cc); ok {
		tag(&cached, metrics.DataSourceCached)
		cc.resolved(metrics.DataSourceCached)
		return cached, nil
	}

	rec, err := synthetic(ctx)
	if err != nil {
		return zero, fmt.Errorf("%s synthetic after live failure: %w", cc.domain, err)
	}
	tag(&rec, metrics.DataSourceErrorFallback)
	cc.resolved(metrics.DataSourceErrorFallback)
	return rec, nil
}

func (cc *chainCore) store(ctx context.Context, rec interface{}) {
	payload, err := json.Marshal(struct {
		StoredAt time.Time   `json:"stored_at"`
		Record   interface{} `json:"record"`
	}{cc.now(), rec})
	if err != nil {
		log.Error().Err(err).Str("component", "datasources").Str("domain", cc.domain).Msg("Encode last-known-good failed")
		return
	}
	if err := cc.cache.Set(ctx, cc.key(), payload, cc.maxAge); err != nil {
		log.Warn().Err(err).Str("component", "datasources").Str("domain", cc.domain).Msg("Store last-known-good failed")
	}
}

func loadCached[T any](ctx context.Context, cc *chainCore) (T, bool) {
	var zero T
	raw, ok, err := cc.cache.Get(ctx, cc.key())
	if err != nil {
		log.Warn().Err(err).Str("component", "datasources").Str("domain", cc.domain).Msg("Read last-known-good failed")
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var rec cachedRecord[T]
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Warn().Err(err).Str("component", "datasources").Str("domain", cc.domain).Msg("Decode last-known-good failed")
		return zero, false
	}
	if cc.now().Sub(rec.StoredAt) >= cc.maxAge {
		return zero, false
	}
	return rec.Record, true
}

// SolarChain resolves solar metrics through live, cached and synthetic sources
type SolarChain struct {
	live      SolarSource
	synthetic SolarSource
	core      chainCore
}

// NewSolarChain builds a chain. live may be nil when no live source is configured.
func NewSolarChain(live, synthetic SolarSource, opts ...ChainOption) *SolarChain {
	return &SolarChain{live: live, synthetic: synthetic, core: newChainCore(DomainSolar, opts)}
}

// Name identifies the chain
func (c *SolarChain) Name() string {
	return "solar-chain"
}

// Health returns the tracker this chain records into
func (c *SolarChain) Health() *Health {
	return c.core.health
}

// FetchSolar returns a tagged solar record
func (c *SolarChain) FetchSolar(ctx context.Context) (metrics.SolarMetrics, error) {
	var live func(context.Context) (metrics.SolarMetrics, error)
	liveName := ""
	if c.live != nil {
		live = c.live.FetchSolar
		liveName = c.live.Name()
	}

	return resolve(ctx, &c.core, liveName, live, c.synthetic.FetchSolar,
		func(s *metrics.SolarMetrics, tag metrics.DataSource) {
			s.DataSource = tag
			*s = s.Normalize()
		})
}

// SocialChain resolves social metrics through live, cached and synthetic sources
type SocialChain struct {
	live      SocialSource
	synthetic SocialSource
	core      chainCore
}

// NewSocialChain builds a chain. live may be nil when no live source is configured.
func NewSocialChain(live, synthetic SocialSource, opts ...ChainOption) *SocialChain {
	return &SocialChain{live: live, synthetic: synthetic, core: newChainCore(DomainSocial, opts)}
}

// Name identifies the chain
func (c *SocialChain) Name() string {
	return "social-chain"
}

// Health returns the tracker this chain records into
func (c *SocialChain) Health() *Health {
	return c.core.health
}

// FetchSocial returns a tagged social record
func (c *SocialChain) FetchSocial(ctx context.Context, solar metrics.SolarMetrics) (metrics.SocialMetrics, error) {
	withSolar := func(fetch func(context.Context, metrics.SolarMetrics) (metrics.SocialMetrics, error)) func(context.Context) (metrics.SocialMetrics, error) {
		return func(ctx context.Context) (metrics.SocialMetrics, error) {
			return fetch(ctx, solar)
		}
	}

	var live func(context.Context) (metrics.SocialMetrics, error)
	liveName := ""
	if c.live != nil {
		live = withSolar(c.live.FetchSocial)
		liveName = c.live.Name()
	}

	return resolve(ctx, &c.core, liveName, live, withSolar(c.synthetic.FetchSocial),
		func(s *metrics.SocialMetrics, tag metrics.DataSource) {
			s.DataSource = tag
			*s = s.Normalize()
		})
}
