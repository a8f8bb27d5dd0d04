package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/config"
	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/datasources/donki"
	"github.com/sawpanic/heliobio/internal/datasources/graph"
	"github.com/sawpanic/heliobio/internal/datasources/synthetic"
	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/infrastructure/db"
	httpapi "github.com/sawpanic/heliobio/internal/interfaces/http"
	"github.com/sawpanic/heliobio/internal/monitor"
	"github.com/sawpanic/heliobio/internal/net/breaker"
	"github.com/sawpanic/heliobio/internal/net/ratelimit"
	"github.com/sawpanic/heliobio/internal/notify"
	"github.com/sawpanic/heliobio/internal/persistence"
)

// app holds the wired components shared by serve and poll
type app struct {
	cfg        config.Config
	cache      datasources.Cache
	health     *datasources.Health
	limits     *ratelimit.Registry
	metrics    *httpapi.MetricsRegistry
	poller     *monitor.Poller
	dispatcher *notify.Dispatcher
	archive    *db.Manager
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		health:  datasources.NewHealth(),
		limits:  ratelimit.NewRegistry(),
		metrics: httpapi.NewMetricsRegistry(),
	}

	cache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.cache = cache

	solarModel := synthetic.NewSolar()
	socialModel := synthetic.NewSocial()

	var liveSolar datasources.SolarSource
	if src := cfg.Sources.DONKI; src.Live() {
		fetch := a.fetcher("donki", src.ProviderConfig)
		liveSolar = donki.New(src.Client(), fetch, donki.WithBaseline(solarModel.Baseline))
	}
	var liveSocial datasources.SocialSource
	if src := cfg.Sources.Graph; src.Live() {
		liveSocial = graph.New(src.Client(), a.fetcher("graph", src.ProviderConfig))
	}
	log.Info().
		Str("component", "sources").
		Bool("donki_live", liveSolar != nil).
		Bool("graph_live", liveSocial != nil).
		Bool("redis_cache", cfg.Cache.Redis()).
		Msg("Metric sources configured")

	chainOpts := []datasources.ChainOption{
		datasources.WithCache(cache),
		datasources.WithMaxAge(cfg.Cache.MaxAge),
		datasources.WithHealth(a.health),
		datasources.WithObserver(a.metrics.ResolveObserver()),
	}
	solar := datasources.NewSolarChain(liveSolar, solarModel, chainOpts...)
	social := datasources.NewSocialChain(liveSocial, socialModel, chainOpts...)

	evaluator, err := alerts.NewEvaluator(cfg.Alerts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.poller, err = monitor.NewPoller(cfg.Poll.Monitor(), solar, social, evaluator,
		monitor.WithObserver(a.metrics))
	if err != nil {
		a.Close()
		return nil, err
	}

	if a.dispatcher, err = newDispatcher(cfg.Notify); err != nil {
		a.Close()
		return nil, err
	}
	if a.dispatcher.Enabled() {
		a.poller.AddObserver(a.dispatcher)
	}

	if a.archive, err = db.NewManager(ctx, cfg.Persistence); err != nil {
		a.Close()
		return nil, err
	}
	if a.archive.IsEnabled() {
		archiver, err := persistence.NewArchiver(a.archive.Repository())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.poller.AddObserver(archiver)
	}
	return a, nil
}

func (a *app) fetcher(source string, p config.ProviderConfig) *datasources.Fetcher {
	limiter := a.limits.Register(source, p.RPS, p.Burst)
	return datasources.NewFetcher(source, p.Timeout, limiter, breaker.New(source, p.Circuit))
}

func newCache(ctx context.Context, cfg config.CacheConfig) (datasources.Cache, error) {
	if cfg.Redis() {
		cache, err := datasources.NewRedisCache(ctx, datasources.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		return cache, nil
	}
	cache := datasources.NewMemoryCache()
	if cfg.CleanupInterval > 0 {
		cache.StartCleanup(ctx, cfg.CleanupInterval)
	}
	return cache, nil
}

func newDispatcher(cfg config.NotifyConfig) (*notify.Dispatcher, error) {
	var sinks []notify.Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}
	if cfg.Kafka.Enabled {
		sink, err := notify.NewKafkaSink(cfg.KafkaSink())
		if err != nil {
			return nil, fmt.Errorf("kafka sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.MQTT.Enabled {
		sink, err := notify.NewMQTTSink(cfg.MQTTSink())
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("mqtt sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	return notify.NewDispatcher(sinks,
		notify.WithOrigin(cfg.Origin),
		notify.WithPublishTimeout(cfg.PublishTimeout),
	), nil
}

// Close releases the cache, sinks and archive connection
func (a *app) Close() error {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close())
	}
	if a.archive != nil {
		errs = append(errs, a.archive.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	return errors.Join(errs...)
}
