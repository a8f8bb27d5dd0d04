package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/metrics"
	"github.com/sawpanic/heliobio/internal/monitor"
)

var sourceTags = []metrics.DataSource{
	metrics.DataSourceLive,
	metrics.DataSourceCached,
	metrics.DataSourceErrorFallback,
	metrics.DataSourceSimulated,
}

// MetricsRegistry holds all Prometheus metrics for heliobio
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Poll cycle metrics
	CycleDuration prometheus.Histogram
	Cycles        prometheus.Counter

	// Resonance and its inputs
	Resonance      prometheus.Gauge
	Components     *prometheus.GaugeVec
	SolarReadings  *prometheus.GaugeVec
	SocialReadings *prometheus.GaugeVec

	// Alerts
	AlertsFired *prometheus.CounterVec

	// Data source resolution
	SourceRecords *prometheus.CounterVec
	FallbackRatio *prometheus.GaugeVec

	// API and push
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	WSClients    prometheus.Gauge
}

// NewMetricsRegistry creates a registry with all heliobio metrics plus the Go
// runtime and process collectors
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "heliobio_cycle_duration_seconds",
				Help:    "Duration of each poll cycle in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		Cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "heliobio_cycles_total",
				Help: "Total number of completed poll cycles",
			},
		),

		Resonance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "heliobio_resonance_score",
				Help: "Latest resonance score (0.0 to 1.0)",
			},
		),

		Components: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heliobio_resonance_component",
				Help: "Normalized resonance inputs of the latest cycle",
			},
			[]string{"component"},
		),

		SolarReadings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heliobio_solar_reading",
				Help: "Latest solar metric values",
			},
			[]string{"metric"},
		),

		SocialReadings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heliobio_social_reading",
				Help: "Latest social metric values",
			},
			[]string{"metric"},
		),

		AlertsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heliobio_alerts_fired_total",
				Help: "Total number of alerts fired by kind and level",
			},
			[]string{"kind", "level"},
		),

		SourceRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heliobio_source_records_total",
				Help: "Records resolved by the fallback chain by domain and data source tag",
			},
			[]string{"domain", "tag"},
		),

		FallbackRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "heliobio_fallback_ratio",
				Help: "Share of records per domain that were not live (0.0 to 1.0)",
			},
			[]string{"domain"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "heliobio_http_requests_total",
				Help: "Total number of API requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "heliobio_http_request_duration_seconds",
				Help:    "API request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"route"},
		),

		WSClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "heliobio_ws_clients",
				Help: "Number of connected websocket clients",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CycleDuration,
		m.Cycles,
		m.Resonance,
		m.Components,
		m.SolarReadings,
		m.SocialReadings,
		m.AlertsFired,
		m.SourceRecords,
		m.FallbackRatio,
		m.HTTPRequests,
		m.HTTPDuration,
		m.WSClients,
	)

	return m
}

// OnCycle records a completed poll cycle
func (m *MetricsRegistry) OnCycle(_ context.Context, result monitor.CycleResult) error {
	m.Cycles.Inc()
	m.CycleDuration.Observe(result.Duration.Seconds())
	m.Resonance.Set(result.Snapshot.Resonance)

	b := result.Breakdown
	m.Components.WithLabelValues("solar_intensity").Set(b.SolarIntensity)
	m.Components.WithLabelValues("social_tension").Set(b.SocialTension)
	m.Components.WithLabelValues("flare_impact").Set(b.FlareImpact)
	m.Components.WithLabelValues("geomagnetic_impact").Set(b.GeomagneticImpact)

	solar := result.Snapshot.Solar
	m.SolarReadings.WithLabelValues("sunspot_number").Set(float64(solar.SunspotNumber))
	m.SolarReadings.WithLabelValues("flare_activity").Set(float64(solar.FlareActivity))
	m.SolarReadings.WithLabelValues("geomagnetic_storm").Set(float64(solar.GeomagneticStorm))
	m.SolarReadings.WithLabelValues("solar_wind_speed").Set(float64(solar.SolarWindSpeed))

	social := result.Snapshot.Social
	m.SocialReadings.WithLabelValues("engagement_intensity").Set(social.EngagementIntensity)
	m.SocialReadings.WithLabelValues("sentiment_polarity").Set(social.SentimentPolarity)
	m.SocialReadings.WithLabelValues("conflict_metric").Set(social.ConflictMetric)

	for _, a := range result.Alerts {
		m.RecordAlert(a)
	}
	return nil
}

// RecordAlert counts one fired alert
func (m *MetricsRegistry) RecordAlert(a alerts.Alert) {
	m.AlertsFired.WithLabelValues(string(a.Kind), string(a.Level)).Inc()
}

// RecordResolution counts a record resolved by a fallback chain and refreshes
// the domain's fallback ratio
func (m *MetricsRegistry) RecordResolution(domain string, tag metrics.DataSource) {
	m.SourceRecords.WithLabelValues(domain, string(tag)).Inc()
	m.updateFallbackRatio(domain)
}

// ResolveObserver adapts RecordResolution for the fallback chains
func (m *MetricsRegistry) ResolveObserver() datasources.ResolveObserver {
	return m.RecordResolution
}

// updateFallbackRatio recomputes non-live/total for a domain from the counters
func (m *MetricsRegistry) updateFallbackRatio(domain string) {
	var live, total float64
	for _, tag := range sourceTags {
		counter, err := m.SourceRecords.GetMetricWithLabelValues(domain, string(tag))
		if err != nil {
			continue
		}
		sample := &io_prometheus_client.Metric{}
		if err := counter.Write(sample); err != nil {
			log.Debug().Str("component", "metrics").Err(err).Msg("Counter read failed")
			continue
		}
		v := sample.GetCounter().GetValue()
		total += v
		if tag == metrics.DataSourceLive {
			live = v
		}
	}
	if total > 0 {
		m.FallbackRatio.WithLabelValues(domain).Set((total - live) / total)
	}
}

// FallbackRatioValue reads the current fallback ratio gauge for a domain
func (m *MetricsRegistry) FallbackRatioValue(domain string) float64 {
	gauge, err := m.FallbackRatio.GetMetricWithLabelValues(domain)
	if err != nil {
		return 0
	}
	sample := &io_prometheus_client.Metric{}
	if err := gauge.Write(sample); err != nil {
		return 0
	}
	return sample.GetGauge().GetValue()
}

// RecordRequest records one API request
func (m *MetricsRegistry) RecordRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SetWSClients sets the websocket client gauge
func (m *MetricsRegistry) SetWSClients(n int) {
	m.WSClients.Set(float64(n))
}

// Gatherer exposes the underlying registry
func (m *MetricsRegistry) Gatherer() prometheus.Gatherer {
	return m.registry
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
